package supervisor

// CoreConfig is the caller-supplied start configuration of a core. Paths are
// used as given; the supervisor neither canonicalizes nor sandboxes them.
type CoreConfig struct {
	CoreType   string `json:"core_type,omitempty"`
	BinPath    string `json:"bin_path"`
	ConfigDir  string `json:"config_dir"`
	ConfigFile string `json:"config_file"`
	LogFile    string `json:"log_file"`
}

// Args is the core command line: working directory and config file.
func (c CoreConfig) Args() []string {
	return []string{"-d", c.ConfigDir, "-f", c.ConfigFile}
}
