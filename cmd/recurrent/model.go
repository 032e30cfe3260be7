package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/checkpoint"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

// loadModel reads the checkpoint and vocabulary named by the shared flags and
// checks that they belong together.
func loadModel(be backend.Backend) (*lstm.Model, *vocab.Vocabulary, error) {
	m, err := checkpoint.Load(modelPath, be)
	if err != nil {
		return nil, nil, err
	}
	v, err := vocab.Load(vocabPath)
	if err != nil {
		return nil, nil, err
	}
	if m.VocabSize() != v.Size() {
		return nil, nil, fmt.Errorf("%w: %s has %d tokens but %s expects %d; run grow or train first",
			lstm.ErrDimension, vocabPath, v.Size(), modelPath, m.VocabSize())
	}
	return m, v, nil
}

// textArg prefers the flag value and falls back to the positional arguments.
func textArg(cmd *cli.Command, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return strings.Join(cmd.Args().Slice(), " ")
}
