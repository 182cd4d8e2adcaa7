package app

import "strings"

type inputKind int

const (
	inputNone inputKind = iota
	inputMessage
	inputJoin
	inputRetry
	inputRooms
	inputStats
	inputHelp
	inputQuit
	inputUnknown
)

const helpText = "/join <room>, /rooms, /retry, /stats, /quit; anything else is sent to the active room"

type input struct {
	kind inputKind
	arg  string
}

// parseInput interprets one line typed by the user.
func parseInput(line string) input {
	line = strings.TrimSpace(line)
	if line == "" {
		return input{kind: inputNone}
	}
	if !strings.HasPrefix(line, "/") {
		return input{kind: inputMessage, arg: line}
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/join", "/j":
		if arg == "" {
			return input{kind: inputUnknown, arg: line}
		}
		return input{kind: inputJoin, arg: strings.TrimPrefix(arg, "#")}
	case "/retry":
		return input{kind: inputRetry}
	case "/rooms":
		return input{kind: inputRooms}
	case "/stats":
		return input{kind: inputStats}
	case "/help":
		return input{kind: inputHelp}
	case "/quit", "/exit":
		return input{kind: inputQuit}
	case "//":
		// "// text" sends a message starting with a slash.
		return input{kind: inputMessage, arg: "/" + arg}
	default:
		return input{kind: inputUnknown, arg: cmd}
	}
}
