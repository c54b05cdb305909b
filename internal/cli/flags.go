package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config string `long:"config" description:"Path to config file" default:""`
	Socket string `long:"socket" description:"Override daemon control socket path" default:""`
	JSON   bool   `long:"json" description:"Output in JSON format"`
}

// StatusCommand shows daemon, pairing, and tracking state.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	deps    *deps
}

// TestConnectionCommand probes whether the desktop app is reachable.
type TestConnectionCommand struct {
	globals *GlobalFlags
	deps    *deps
}

// EnableCommand turns tracking on.
type EnableCommand struct {
	globals *GlobalFlags
	deps    *deps
}

// DisableCommand turns tracking off and disconnects.
type DisableCommand struct {
	globals *GlobalFlags
	deps    *deps
}
