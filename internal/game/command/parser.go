package command

import "strings"

// Parsed holds one input line split into verb, preposition and object phrase.
type Parsed struct {
	// Verb is the first word, lowercased and expanded through the shorthand table.
	Verb string
	// Preposition is set when the second word is one of the known prepositions.
	Preposition string
	// Object is the remaining phrase with leading articles removed.
	Object string
	// Args are the words after the verb, in their original case.
	Args []string
	// Raw is the text after the verb with its spacing preserved.
	Raw string
}

var shorthands = map[string]string{
	"n":   "north",
	"s":   "south",
	"e":   "east",
	"w":   "west",
	"ne":  "northeast",
	"nw":  "northwest",
	"se":  "southeast",
	"sw":  "southwest",
	"u":   "up",
	"d":   "down",
	"l":   "look",
	"x":   "examine",
	"i":   "inventory",
	"inv": "inventory",
	"k":   "kill",
	"'":   "say",
	"?":   "help",
}

var prepositions = map[string]bool{
	"at": true, "to": true, "in": true, "on": true,
	"with": true, "from": true, "into": true,
}

var articles = map[string]bool{"a": true, "an": true, "the": true}

// Parse splits a text line into verb, preposition and object phrase.
//
// Postcondition: Verb is empty only when line is blank; Object never starts
// with an article.
func Parse(line string) Parsed {
	line = strings.TrimSpace(line)
	if line == "" {
		return Parsed{}
	}

	verb, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		verb, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	verb = strings.ToLower(verb)
	if full, ok := shorthands[verb]; ok {
		verb = full
	}

	p := Parsed{Verb: verb, Raw: rest}
	words := strings.Fields(rest)
	if len(words) == 0 {
		return p
	}
	p.Args = words
	if prepositions[strings.ToLower(words[0])] {
		p.Preposition = strings.ToLower(words[0])
		words = words[1:]
	}
	for len(words) > 0 && articles[strings.ToLower(words[0])] {
		words = words[1:]
	}
	p.Object = strings.Join(words, " ")
	return p
}
