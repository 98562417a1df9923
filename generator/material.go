package generator

import "github.com/dendrascience/fastgen/words"

// Material is the key-independent filler a template is rendered with. It is
// pre-built in the background and handed out on cache misses.
type Material struct {
	Art   string
	Quote string
	Fact  string
	Joke  string
}

var (
	arts = []string{
		"  /\\_/\\\n ( o.o )\n  > ^ <",
		"   __\n  (  )\n   ||\n  /__\\",
		" _____\n|     |\n| [ ] |\n|_____|",
		"  *\n ***\n*****\n  |",
		" .--.\n|o_o |\n|:_/ |\n//   \\ \\",
		"~~~~~~~~\n ><(((º>\n~~~~~~~~",
	}
	quotes = []string{
		"Simplicity is prerequisite for reliability.",
		"Premature optimization is the root of all evil.",
		"A clear message is worth a thousand retries.",
		"Measure twice, write once.",
		"The best queue is the one that never fills.",
		"Small batches ship sooner.",
		"Clear is better than clever.",
	}
	facts = []string{
		"Octopuses have three hearts.",
		"Honey found in ancient tombs is still edible.",
		"A day on Venus is longer than its year.",
		"Bananas are botanically berries.",
		"The Eiffel Tower grows in summer heat.",
		"Sharks existed before trees.",
		"Wombat droppings are cube shaped.",
	}
	jokes = []string{
		"There are 10 kinds of people: those who read binary and those who don't.",
		"I would tell a UDP joke, but you might not get it.",
		"The queue was full, so the joke had to wait.",
		"Why do programmers prefer dark mode? Light attracts bugs.",
		"A commit walks into a bar. Nothing to commit.",
		"Cache invalidation walks in. Or was that yesterday?",
	}
)

// NewMaterial draws one of each filler kind from src.
func NewMaterial(src *words.Source) Material {
	return Material{
		Art:   arts[src.Intn(len(arts))],
		Quote: quotes[src.Intn(len(quotes))],
		Fact:  facts[src.Intn(len(facts))],
		Joke:  jokes[src.Intn(len(jokes))],
	}
}
