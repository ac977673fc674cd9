package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen   Command = "listen"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandStatus   Command = "status"
	CommandDevices  Command = "devices"
	CommandFeatures Command = "features"
	CommandHistory  Command = "history"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:   {},
	CommandStop:     {},
	CommandCancel:   {},
	CommandStatus:   {},
	CommandDevices:  {},
	CommandFeatures: {},
	CommandHistory:  {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// commandArgs bounds the positional arguments each command accepts.
var commandArgs = map[Command]struct{ min, max int }{
	CommandFeatures: {1, 1},
	CommandHistory:  {0, 1},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	seenCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case arg == "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		case !seenCommand:
			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			seenCommand = true
		default:
			parsed.Args = append(parsed.Args, arg)
		}
	}

	if seenCommand {
		bounds := commandArgs[parsed.Command]
		if len(parsed.Args) < bounds.min {
			return Parsed{}, fmt.Errorf("command %q requires an argument", parsed.Command)
		}
		if len(parsed.Args) > bounds.max {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	} else if len(parsed.Args) > 0 {
		return Parsed{}, fmt.Errorf("unexpected argument: %s", parsed.Args[0])
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  listen          Capture the microphone and print live Telugu transcriptions
  stop            Ask a running listener to flush pending audio and exit
  cancel          Ask a running listener to discard pending audio and exit
  status          Print the running listener's state
  devices         List available input devices
  features FILE   Print the log-Mel spectrogram shape for a WAV file
  history [N]     Show the N most recent transcribed utterances (default 20)
  doctor          Run configuration and environment checks
  version         Print version information
  help            Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/vinu/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
