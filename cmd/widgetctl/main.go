// Command-line client for the widget REST API
package main

import (
	"os"

	"github.com/go-while/go-widgets/internal/config"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
