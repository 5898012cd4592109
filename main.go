// Package main is the entry point for the querylens CLI.
package main

import (
	"github.com/huangsam/querylens/cmd"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()

	// LogFatal exits without running defers
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()

	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
