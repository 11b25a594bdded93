package main

import "flag"

type cliArgs struct {
	configPath  string
	versionList string
	clusterSize int
	image       string
	verbose     bool
}

func parseCliArgs() cliArgs {
	args := cliArgs{}

	flag.StringVar(&args.configPath, "config", "", "path to the yaml config file")
	flag.StringVar(&args.versionList, "versions", "", "comma-separated upgrade sequence, overrides the config")
	flag.IntVar(&args.clusterSize, "cluster-size", 0, "number of cluster nodes, overrides the config")
	flag.StringVar(&args.image, "image", "", "docker image repository, overrides the config")
	flag.BoolVar(&args.verbose, "verbose", false, "verbose mode")

	flag.Parse()

	return args
}
