package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
restcue keeps a focus/rest rhythm and shows a break overlay in your
browser when it is time to rest. The daemon owns the timers; the browser
extension connects to it and draws the overlay.
`

const DaemonDescription = `Runs the restcue daemon in the foreground.

The daemon listens on the configured loopback address for the extension
and for the other restcue commands. State lives in the configured storage
and survives restarts; pending breaks are reconciled on start.

Usage:
        restcue daemon [--ephemeral]

`

const SettingsDescription = `Shows the current settings, or changes them with --set.

Values are JSON when they parse as JSON and plain strings otherwise.
Unknown or invalid values fall back to their defaults.

Examples:
        restcue settings
        restcue settings --set intervalMinutes=45 --set restMinutes=10
        restcue settings --set enabled=false
        restcue settings --set 'suggestions=["Look away","Walk"]'

`
