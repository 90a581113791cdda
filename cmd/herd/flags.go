package main

import "time"

// Flag structs to decouple cobra from logic for testing.

type ServeFlags struct {
	ConfigPath string
}

type StatusFlags struct {
	APIUrl     string
	APITimeout time.Duration
	JSON       bool
}
