package repo

import "context"

// Notifier posts messages to the fixed destination chat.
// Text uses the destination markup subset: <b>, <i>, <code>, <pre> and <a href>.
type Notifier interface {
	Send(ctx context.Context, text string, silent bool) error
}

// Command is a slash command received in the destination chat
type Command struct {
	ChatID string
	Name   string // without the leading slash, lowercase
	Args   string
	From   string
}

// CommandHandler answers a command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, cmd Command) (reply string)

// CommandSource delivers commands from the destination platform
type CommandSource interface {
	// Listen blocks until ctx is done, calling handler for each command
	Listen(ctx context.Context, handler CommandHandler) error
}
