/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/launix-de/asyncmf/internal/config"
	"github.com/launix-de/asyncmf/internal/model"
	"github.com/launix-de/asyncmf/internal/sample"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "mf-predict:", r)
			os.Exit(1)
		}
	}()

	opts := parseFlags()
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "mf-predict:", err)
		printUsage()
		os.Exit(1)
	}

	run(opts)
}

func parseFlags() config.PredictOptions {
	var opts config.PredictOptions
	flag.StringVar(&opts.Test, "test", "", "path to the held-out sample file to score")
	flag.StringVar(&opts.Model, "model", "", "path to a model file written by mf-train")
	flag.IntVar(&opts.Threads, "threads", 1, "reserved for future parallel scoring")
	flag.Parse()
	return opts
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: mf-predict --test=<samples> --model=<model>")
	flag.PrintDefaults()
}

func run(opts config.PredictOptions) {
	predictor, err := model.Load(opts.Model)
	if err != nil {
		panic(err)
	}

	src, err := sample.OpenFileSource(opts.Test)
	if err != nil {
		panic(err)
	}
	defer src.Close()

	rmse, total, err := model.Evaluate(predictor, src)
	if err != nil {
		panic(err)
	}

	fmt.Printf("scored=[%d],rmse is [%f]\n", total, rmse)
}
