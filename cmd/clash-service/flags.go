package main

import "time"

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// ClientFlags select the daemon a client command talks to.
type ClientFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// StartFlags carry the core start configuration.
type StartFlags struct {
	ClientFlags
	CoreType   string
	BinPath    string
	ConfigDir  string
	ConfigFile string
	LogFile    string
}

// HistoryFlags filter the lifecycle history listing.
type HistoryFlags struct {
	DSN   string
	Unit  string
	Limit int
}
