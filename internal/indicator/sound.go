package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
	cueNotice
)

func (k cueKind) String() string {
	if c, ok := cues[k]; ok {
		return c.name
	}
	return "unknown"
}

const (
	synthRate  = audio.SampleRate
	toneGap    = 22 * time.Millisecond
	toneVolume = 0.16
	rampLimit  = 5 * time.Millisecond
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

func tone(hz float64, ms int) toneSpec {
	return toneSpec{frequencyHz: hz, duration: time.Duration(ms) * time.Millisecond, volume: toneVolume}
}

// cue pairs the built-in tone sequence for one event with the config field
// that may override it with a sound file.
type cue struct {
	name  string
	tones []toneSpec
	file  func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueStart: {
		name:  "start",
		tones: []toneSpec{tone(660, 60), tone(990, 80)},
		file:  func(c config.IndicatorConfig) string { return c.SoundStartFile },
	},
	cueStop: {
		name:  "stop",
		tones: []toneSpec{tone(990, 60), tone(660, 80)},
		file:  func(c config.IndicatorConfig) string { return c.SoundStopFile },
	},
	cueComplete: {
		name:  "complete",
		tones: []toneSpec{tone(784, 60), tone(1047, 110)},
		file:  func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueCancel: {
		name:  "cancel",
		tones: []toneSpec{tone(440, 140)},
		file:  func(c config.IndicatorConfig) string { return c.SoundCancelFile },
	},
	cueNotice: {
		name:  "notice",
		tones: []toneSpec{tone(523, 70), tone(392, 70), tone(330, 120)},
		file:  func(c config.IndicatorConfig) string { return c.SoundNoticeFile },
	},
}

// emitCue plays the sound file configured for kind, or its built-in tones
// when no file is set or the file cannot be played.
func emitCue(kind cueKind, cfg config.IndicatorConfig) error {
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(path); err == nil {
			return nil
		}
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playPCM(audio.PCM16{SampleRate: synthRate, Channels: 1, Samples: samples})
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok {
		return ""
	}
	return expandUserPath(c.file(cfg))
}

// expandUserPath resolves a leading "~" against the user's home directory.
func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

// playCueFile streams 16-bit PCM WAV files through Pulse and hands any other
// format to pw-play.
func playCueFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if pcm, err := audio.ReadWAV(path); err == nil {
			return playPCM(pcm)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pw-play %q: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func playbackLayout(channels int) (pulse.PlaybackOption, error) {
	switch channels {
	case 1:
		return pulse.PlaybackMono, nil
	case 2:
		return pulse.PlaybackStereo, nil
	default:
		return nil, fmt.Errorf("unsupported cue channel count %d", channels)
	}
}

func playPCM(pcm audio.PCM16) error {
	layout, err := playbackLayout(pcm.Channels)
	if err != nil {
		return err
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName(audio.AppName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		pulse.Int16Reader(sampleSource(pcm.Samples)),
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(audio.AppName+" cue"),
	)
	if err != nil {
		return fmt.Errorf("open cue playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("cue playback: %w", err)
	}
	return nil
}

// sampleSource feeds samples to a playback stream and reports EndOfData with
// the final chunk.
func sampleSource(samples []int16) func([]int16) (int, error) {
	cursor := 0
	return func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}

func cueSamples(kind cueKind) []int16 {
	c, ok := cues[kind]
	if !ok {
		return nil
	}
	return synthesizeCue(c.tones)
}

func synthesizeCue(parts []toneSpec) []int16 {
	var pcm []int16
	gap := make([]int16, samplesForDuration(toneGap))
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine wave with a short linear fade at both ends.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(n/10, samplesForDuration(rampLimit))
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * spec.frequencyHz * float64(i) / synthRate
		pcm[i] = int16(math.Round(math.Sin(phase) * spec.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * synthRate))
}
