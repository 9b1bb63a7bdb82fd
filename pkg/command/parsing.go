package command

import (
	"sort"
	"strings"
)

func Is(possibleCommand string, cmd Command) bool {
	if possibleCommand == cmd.Name() {
		return true
	}
	aliases := append([]string(nil), cmd.Aliases()...)
	if len(aliases) == 0 {
		return false
	}
	sort.Strings(aliases)
	index := sort.SearchStrings(aliases, possibleCommand)
	if index < len(aliases) && aliases[index] == possibleCommand {
		return true
	}
	return false
}

func Find(commands []Command, possibleCommand string) Command {
	for _, cmd := range commands {
		if Is(possibleCommand, cmd) {
			return cmd
		}
	}
	return nil
}

// Parse splits a message of the form "<trigger><name> <args...>".
// ok is false when message does not start with trigger followed by a name.
func Parse(trigger string, message string) (name string, args []string, argString string, ok bool) {
	if trigger == "" || !strings.HasPrefix(message, trigger) {
		return "", nil, "", false
	}
	rest := strings.TrimPrefix(message, trigger)
	fields := strings.Fields(rest)
	if len(fields) == 0 || strings.HasPrefix(rest, " ") {
		return "", nil, "", false
	}
	name = fields[0]
	argString = strings.TrimSpace(strings.TrimPrefix(rest, name))
	return name, fields[1:], argString, true
}
