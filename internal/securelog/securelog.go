// Package securelog logs failures and conversation events without writing
// what the user said or what the backend answered.
package securelog

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
)

// Error logs err as its caller location and type chain. The message itself
// may echo a transcript or backend reply and is never written.
func Error(context string, err error) {
	if err == nil {
		return
	}
	loc := callerLocation(2)
	types := strings.Join(errorTypes(err), "->")
	if context == "" {
		log.Printf("error at %s types=%s", loc, types)
		return
	}
	log.Printf("error at %s context=%s types=%s", loc, context, types)
}

// Text logs that a piece of conversation text was handled, recording only
// its size.
func Text(context, text string) {
	log.Printf("%s: chars=%d words=%d", context, len([]rune(text)), len(strings.Fields(text)))
}

func callerLocation(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d %s", file, line, name)
}

func errorTypes(err error) []string {
	var types []string
	seen := map[string]bool{}
	for err != nil {
		name := fmt.Sprintf("%T", err)
		if !seen[name] {
			seen[name] = true
			types = append(types, name)
		}
		err = errors.Unwrap(err)
	}
	return types
}
