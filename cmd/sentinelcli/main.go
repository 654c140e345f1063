package main

import (
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"
	"github.com/phoreproject/sentinel/cfg"
	"github.com/phoreproject/sentinel/client"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
	logger "github.com/sirupsen/logrus"
)

type options struct {
	Node      string `yaml:"node" cli:"node" desc:"URL of the node API"`
	ProgramID string `yaml:"program_id" cli:"program-id" desc:"address of the fraud program"`
	Receiver  string `yaml:"receiver" cli:"receiver" desc:"receiver identity recorded with verdicts"`
}

func commandCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "keygen", Description: "Generates a new oracle key"},
		{Text: "usekey", Description: "Loads an oracle key from its seed"},
		{Text: "airdrop", Description: "Funds the oracle key from the faucet"},
		{Text: "balance", Description: "Gets the balance of an address"},
		{Text: "process", Description: "Records a fraud verdict"},
		{Text: "record", Description: "Shows and verifies the record of a transaction"},
		{Text: "fraud", Description: "Lists fraud alerts"},
		{Text: "state", Description: "Shows the ledger state"},
		{Text: "exit", Description: "Exits the console"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

var output = color.New(color.FgCyan)

var errOut = color.New(color.FgRed, color.Bold)

func exit(b *prompt.Buffer) {
	os.Exit(0)
}

func main() {
	opts := options{
		Node:      "http://127.0.0.1:8899",
		ProgramID: sentinel.DefaultProgramID.String(),
		Receiver:  ledger.SystemProgramID.String(),
	}
	globalConfig := cfg.GlobalOptions{}
	if err := cfg.LoadFlags(&opts, &globalConfig); err != nil {
		logger.Fatal(err)
	}

	programID, err := ledger.ParseAddress(opts.ProgramID)
	if err != nil {
		logger.Fatalf("invalid program id: %s", err)
	}
	receiver, err := ledger.ParseAddress(opts.Receiver)
	if err != nil {
		logger.Fatalf("invalid receiver: %s", err)
	}

	oracle := NewOracleCMD(client.NewClient(opts.Node), programID, receiver, color.Output, output, errOut)

	var commandMap = map[string]func(args []string){
		"keygen":  oracle.Keygen,
		"usekey":  oracle.UseKey,
		"airdrop": oracle.Airdrop,
		"balance": oracle.Balance,
		"process": oracle.Process,
		"record":  oracle.Record,
		"fraud":   oracle.Fraud,
		"state":   oracle.State,
		"exit":    oracle.Exit,
	}

	go func() {
		<-oracle.ExitChan
		exit(nil)
	}()

	for {
		out := prompt.Input("> ", commandCompleter,
			prompt.OptionAddKeyBind(prompt.KeyBind{Key: prompt.ControlC, Fn: exit}),
			prompt.OptionAddKeyBind(prompt.KeyBind{Key: prompt.ControlD, Fn: exit}))

		args := strings.Fields(out)

		if len(args) == 0 {
			continue
		}

		comFunc, found := commandMap[args[0]]
		if !found {
			_, _ = errOut.Printf("invalid command: %s\n", args[0])
			continue
		}

		comFunc(args[1:])
	}
}
