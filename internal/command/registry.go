package command

var registry = map[string]Command{}

// Register adds a command to the registry, wrapped in the given
// middlewares.
func Register(cmd Command, mws ...Middleware) {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	registry[cmd.Name()] = cmd
}

// Get returns the command with the given name.
func Get(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// All returns every registered command.
func All() []Command {
	list := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		list = append(list, cmd)
	}
	return list
}
