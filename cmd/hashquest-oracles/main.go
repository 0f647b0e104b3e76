// HashQuest: an idle proof-of-work mining game
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"hashquest/internal/difficulty"
	"hashquest/pkg/hashing/core"
	"hashquest/pkg/hashing/factory"
)

var (
	duration = flag.Duration("duration", time.Second, "how long to benchmark each oracle")
	level    = flag.Uint("difficulty", 16, "difficulty (leading zero bits) used for the time-to-find estimate")
)

func main() {
	flag.Parse()

	fmt.Println("HashQuest Hash Oracles")
	fmt.Println("======================")

	fact := factory.NewHashMethodFactory(nil)
	defer func() {
		if err := fact.ShutdownAll(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()
	report := fact.GetDetectionReport()
	model := difficulty.MustNewModel(difficulty.DefaultConfig())
	d := model.Clamp(uint32(*level))

	for _, method := range report.Methods {
		status := "❌ UNAVAILABLE"
		if method.Available {
			status = "✅ AVAILABLE"
		}
		fmt.Printf("\n  %-14s %s - %s\n", method.Name, status, method.Description)
		if !method.Available {
			if method.Capabilities != nil && method.Capabilities.Reason != "" {
				fmt.Printf("    Reason: %s\n", method.Capabilities.Reason)
			}
			continue
		}

		hashMethod := fact.GetMethod(method.Name)
		rate, found, err := benchmark(hashMethod, model, d, *duration)
		if err != nil {
			log.Printf("Benchmark of %s failed: %v", method.Name, err)
			continue
		}
		fmt.Printf("    Measured:  %s\n", humanize.SIWithDigits(rate, 2, "H/s"))
		fmt.Printf("    Finds:     %d at difficulty %d\n", found, d)
		if rate > 0 {
			expected := time.Duration(float64(time.Second) / (rate * model.Probability(d)))
			fmt.Printf("    Expected:  one find every %s\n", expected.Round(time.Millisecond))
		}
	}
	fmt.Printf("\nDefault oracle: %s\n", report.BestMethod)
}

// benchmark hashes distinct candidates for the given duration
func benchmark(method core.HashMethod, model *difficulty.Model, d uint32, duration time.Duration) (float64, uint64, error) {
	if err := method.Initialize(); err != nil {
		return 0, 0, err
	}

	var buf [8]byte
	var hashes, found uint64
	start := time.Now()
	deadline := start.Add(duration)
	for time.Now().Before(deadline) {
		// check the clock every 1024 hashes
		for i := 0; i < 1024; i++ {
			binary.BigEndian.PutUint64(buf[:], hashes)
			digest, err := method.ComputeHash(buf[:])
			if err != nil {
				return 0, found, err
			}
			hashes++
			if model.IsSuccess(digest, d) {
				found++
			}
		}
	}
	return float64(hashes) / time.Since(start).Seconds(), found, nil
}
