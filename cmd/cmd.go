// Package cmd implements the restcue command line: the daemon, the native
// messaging host and the client commands that drive a running daemon.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/restcue/restcue/cmd/common"
	"github.com/restcue/restcue/cmd/nativehost"
	rcommon "github.com/restcue/restcue/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

var configFlag = cli.StringFlag{
	Name:   "config",
	Usage:  "path to the YAML config file",
	EnvVar: rcommon.ConfigPathEnv,
}

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "restcue",
		HelpName:              "restcue",
		Usage:                 "break reminders delivered to your browser tabs",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "restcue <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 []cli.Flag{configFlag},
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "run the reminder daemon",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             runDaemon,
				Flags:              daemonFlags,
			},
			{
				Name:        "native-host",
				Usage:       "manage the browser native messaging host",
				Subcommands: nativehost.Commands(runNativeHost),
			},
			{
				Name:               "start",
				Usage:              "start a focus session",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             start,
				Flags:              startFlags,
			},
			{
				Name:               "pause",
				Aliases:            []string{"p"},
				Usage:              "take a break now",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             pause,
				Flags:              pauseFlags,
			},
			{
				Name:   "resume",
				Usage:  "end the break and start focusing again",
				Action: resume,
			},
			{
				Name:               "stats",
				Aliases:            []string{"s"},
				Usage:              "show today's focus and rest minutes",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             showStats,
				Flags:              statsFlags,
			},
			{
				Name:   "reset",
				Usage:  "zero today's counters",
				Action: reset,
			},
			{
				Name:               "settings",
				Usage:              "show or change settings",
				Description:        SettingsDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             settingsCmd,
				Flags:              settingsFlags,
			},
			{
				Name:               "trigger",
				Usage:              "show the break overlay once without changing the session",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             trigger,
				Flags:              triggerFlags,
			},
			{
				Name:   "secret",
				Usage:  "print the token the extension uses to connect",
				Action: secretCmd,
				Flags:  secretFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of restcue",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
