package app

import "testing"

func TestParseInput(t *testing.T) {
	tests := []struct {
		line string
		want input
	}{
		{line: "", want: input{kind: inputNone}},
		{line: "   ", want: input{kind: inputNone}},
		{line: " hello there ", want: input{kind: inputMessage, arg: "hello there"}},
		{line: "/join random", want: input{kind: inputJoin, arg: "random"}},
		{line: "/j #tech", want: input{kind: inputJoin, arg: "tech"}},
		{line: "/join", want: input{kind: inputUnknown, arg: "/join"}},
		{line: "/retry", want: input{kind: inputRetry}},
		{line: "/rooms", want: input{kind: inputRooms}},
		{line: "/stats", want: input{kind: inputStats}},
		{line: "/help", want: input{kind: inputHelp}},
		{line: "/quit", want: input{kind: inputQuit}},
		{line: "// not a command", want: input{kind: inputMessage, arg: "/not a command"}},
		{line: "/dance now", want: input{kind: inputUnknown, arg: "/dance"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := parseInput(tt.line); got != tt.want {
				t.Fatalf("parseInput(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
