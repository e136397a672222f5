package cmd

import (
	"flag"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion: every
// subcommand with its flags, and the global flags.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	for _, cmds := range Commands {
		for _, c := range cmds {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			root.Sub[c.Name()] = &complete.Command{Flags: flagPredictors(fs), Args: predict.Something}
		}
	}
	root.Sub["help"] = &complete.Command{Args: predict.Set(commandNames())}
	if topics, err := docs.GetAllTopics(); err == nil {
		root.Sub["topic"].Args = predict.Set(append(topics, docs.Readme))
	}
	root.Sub["flags"] = &complete.Command{}
	root.Sub["commands"] = &complete.Command{}
	return root
}

func commandNames() []string {
	var names []string
	for _, cmds := range Commands {
		for _, c := range cmds {
			names = append(names, c.Name())
		}
	}
	return names
}

func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		switch {
		case f.Name == "config":
			flags[f.Name] = predict.Or(predict.Files("*.toml"), predict.Files("*.yaml"), predict.Files("*.yml"))
		case f.Name == "p":
			flags[f.Name] = predict.Set(date.Units())
		case f.Name == "category":
			var names []string
			for _, c := range api.ChatCategories {
				names = append(names, string(c))
			}
			flags[f.Name] = predict.Set(names)
		case isBoolFlag(f):
			flags[f.Name] = predict.Nothing
		default:
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
