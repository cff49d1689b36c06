package main

import (
	"github.com/urfave/cli"
)

const defaultServer = "http://localhost:8080"

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "server, s",
		Usage:  "base URL of the vesting API",
		Value:  defaultServer,
		EnvVar: "VESTCTL_SERVER",
	},
	cli.StringFlag{
		Name:   "caller",
		Usage:  "hex identity sent as the caller of state-changing requests",
		EnvVar: "VESTCTL_CALLER",
	},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vestctl"
	app.HelpName = "vestctl"
	app.Usage = "operate linear vesting deployments"
	app.UsageText = "vestctl [global options] <command> [arguments...]"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:      "schedule",
			Usage:     "evaluate the vesting schedule offline",
			UsageText: "vestctl schedule --balance 1000 --duration 200 --elapsed 100",
			Action:    scheduleAction,
			Flags:     scheduleFlags,
		},
		{
			Name:      "deploy",
			Usage:     "create a deployment starting now",
			UsageText: "vestctl --caller <hex> deploy --beneficiary <hex> --duration <seconds> [--funding n]",
			Action:    deployAction,
			Flags:     deployFlags,
		},
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "list deployments",
			Action:  listAction,
		},
		{
			Name:      "status",
			Usage:     "show every query of a deployment at one instant",
			UsageText: "vestctl status <deployment-id>",
			Action:    statusAction,
		},
		{
			Name:      "query",
			Usage:     "evaluate one named query",
			UsageText: "vestctl query <deployment-id> <name>",
			Action:    queryAction,
		},
		{
			Name:      "release",
			Usage:     "pay the releasable balance to the beneficiary",
			UsageText: "vestctl release <deployment-id>",
			Action:    releaseAction,
		},
		{
			Name:      "deposit",
			Usage:     "add funds to a deployment",
			UsageText: "vestctl deposit <deployment-id> --amount n",
			Action:    depositAction,
			Flags:     depositFlags,
		},
		{
			Name:      "balance",
			Usage:     "show the wallet balance of an identity",
			UsageText: "vestctl balance <identity>",
			Action:    balanceAction,
		},
	}
	return app
}
