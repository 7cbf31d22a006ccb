package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
)

// DefaultDurationSec is assumed when ffprobe cannot report a duration.
// Downstream planning and cost estimation tolerate the approximation.
const DefaultDurationSec = 60

// Probe obtains media duration through ffprobe.
type Probe struct {
	bin     string
	timeout time.Duration
	runner  Runner
	log     *log.Logger
}

func NewProbe(bin string, timeout time.Duration, runner Runner) *Probe {
	if bin == "" {
		bin = "ffprobe"
	}
	if runner == nil {
		runner = NewRunner()
	}
	return &Probe{bin: bin, timeout: timeout, runner: runner, log: logging.New("probe")}
}

// Duration returns the media duration in whole seconds. A missing ffprobe
// binary is a configuration error; any other failure degrades to
// DefaultDurationSec.
func (p *Probe) Duration(ctx context.Context, path string) (int, error) {
	if _, err := exec.LookPath(p.bin); err != nil {
		return 0, fmt.Errorf("%w: %s not found in PATH", models.ErrConfiguration, p.bin)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Run(ctx, p.bin, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		// Alternate invocation form; some containers only answer this one.
		out, err = p.runner.Run(ctx, p.bin, []string{
			"-i", path,
			"-show_entries", "format=duration",
			"-v", "quiet",
			"-of", "csv=p=0",
		})
		if err != nil {
			p.log.Warn("duration probe failed, assuming default",
				"path", path, "default", DefaultDurationSec, "error", err)
			return DefaultDurationSec, nil
		}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || seconds <= 0 {
		p.log.Warn("unparsable duration, assuming default",
			"path", path, "output", strings.TrimSpace(out), "default", DefaultDurationSec)
		return DefaultDurationSec, nil
	}

	p.log.Debug("probed duration", "path", path, "seconds", int(seconds))
	return int(seconds), nil
}
