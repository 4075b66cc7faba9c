package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/codec"
	"github.com/petems/clipwav/internal/metrics"
	"github.com/petems/clipwav/internal/pcm"
	"github.com/petems/clipwav/internal/wav"
	"github.com/rs/zerolog"
)

// ErrUnrecoverableAudio is returned when neither the declared container nor
// the raw PCM salvage path yields audio
var ErrUnrecoverableAudio = errors.New("unrecoverable audio")

// Decoder is the codec collaborator the pipeline depends on
type Decoder interface {
	Decode(c audio.Container, data []byte, hint audio.Constraints) (pcm.Buffer, error)
}

// Config holds pipeline dependencies
type Config struct {
	Decoder Decoder // nil uses codec.DefaultRegistry()
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Pipeline turns a raw capture into canonical PCM
type Pipeline struct {
	decoder Decoder
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func New(cfg Config) *Pipeline {
	dec := cfg.Decoder
	if dec == nil {
		dec = codec.DefaultRegistry()
	}
	return &Pipeline{
		decoder: dec,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Normalize decodes the capture and converts it to the target's channel
// count and sample rate. Only mono targets are supported.
func (p *Pipeline) Normalize(capture audio.CaptureResult, target wav.Target) (pcm.Buffer, error) {
	if target.Channels != 1 || target.SampleRate <= 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: cannot normalize to %d Hz with %d channels",
			wav.ErrUnsupportedFormat, target.SampleRate, target.Channels)
	}

	start := time.Now()
	defer func() { p.metrics.RecordPipeline(time.Since(start).Seconds()) }()

	buf, err := p.decode(capture)
	if err != nil {
		return pcm.Buffer{}, err
	}

	if buf.Channels != target.Channels {
		buf = pcm.Mixdown(buf)
	}

	if buf.SampleRate != target.SampleRate {
		buf, err = pcm.Resample(buf, target.SampleRate)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("resample: %w", err)
		}
	}

	p.logger.Debug().
		Int("frames", buf.Frames()).
		Dur("duration", buf.Duration()).
		Msg("Capture normalized")

	return buf, nil
}

// decode tries the declared container, then raw PCM at the requested
// constraints. There is exactly one fallback attempt.
func (p *Pipeline) decode(capture audio.CaptureResult) (pcm.Buffer, error) {
	buf, err := p.decoder.Decode(capture.Container, capture.Data, capture.Requested)
	if err == nil {
		return buf, nil
	}

	p.metrics.RecordDecodeFailure(string(capture.Container))
	log := p.logger.With().Str("container", string(capture.Container)).Int("bytes", len(capture.Data)).Logger()

	if capture.Container == audio.ContainerPCMS16LE {
		log.Warn().Err(err).Msg("Raw PCM capture could not be decoded")
		return pcm.Buffer{}, fmt.Errorf("%w: %w", ErrUnrecoverableAudio, err)
	}

	log.Warn().Err(err).Msg("Decode failed, salvaging as raw PCM")

	buf, salvageErr := p.decoder.Decode(audio.ContainerPCMS16LE, capture.Data, capture.Requested)
	p.metrics.RecordSalvage(salvageErr == nil)
	if salvageErr != nil {
		log.Warn().Err(salvageErr).Msg("Salvage failed")
		return pcm.Buffer{}, fmt.Errorf("%w: %w; salvage: %w", ErrUnrecoverableAudio, err, salvageErr)
	}

	log.Info().
		Int("sample_rate", buf.SampleRate).
		Int("channels", buf.Channels).
		Msg("Recovered capture as raw PCM")
	return buf, nil
}

// Process normalizes to the canonical target and encodes the result
func (p *Pipeline) Process(capture audio.CaptureResult) (wav.Clip, error) {
	buf, err := p.Normalize(capture, wav.Canonical)
	if err != nil {
		return wav.Clip{}, err
	}

	clip, err := wav.NewClip(buf)
	if err != nil {
		if errors.Is(err, wav.ErrUnsupportedFormat) {
			p.logger.Error().Err(err).
				Int("sample_rate", buf.SampleRate).
				Int("channels", buf.Channels).
				Msg("BUG: normalized buffer rejected by encoder")
		}
		return wav.Clip{}, err
	}

	p.metrics.RecordClip(clip.Duration().Seconds(), clip.Len())
	return clip, nil
}
