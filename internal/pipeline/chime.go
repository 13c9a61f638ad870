package pipeline

import (
	"context"
	"strconv"

	"github.com/aops-ba/testenv/internal/command"
	"github.com/aops-ba/testenv/internal/log"
)

// SkipChimeEnv silences the completion tones when set to any value.
const SkipChimeEnv = "TESTENV_SKIP_CHIME"

// chime plays the pipeline's tones through sox when it is installed. Nothing
// it does can fail the run.
func (p *Pipeline) chime(ctx context.Context) {
	if p.deps.LookupEnv != nil {
		if _, ok := p.deps.LookupEnv(SkipChimeEnv); ok {
			log.Debug(ctx, SkipChimeEnv+" is set, skipping chime")
			return
		}
	}
	if p.deps.LookPath == nil {
		return
	}
	if _, err := p.deps.LookPath("play"); err != nil {
		return
	}

	for _, freq := range p.tones {
		_, err := p.deps.Runner.Run(ctx, command.Cmd{
			Args:    []string{"play", "-q", "-n", "synth", "0.1", "sin", strconv.Itoa(freq)},
			NoCheck: true,
		})
		if err != nil {
			log.Debug(ctx, "failed to play chime", "error", err)
			return
		}
	}
}
