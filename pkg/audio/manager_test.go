package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestVolumeToPower(t *testing.T) {
	if got := volumeToPower(1.0); got != 0 {
		t.Errorf("unity gain must map to 0, got %f", got)
	}
	if got := volumeToPower(0.5); math.Abs(got+1) > 1e-9 {
		t.Errorf("half volume must map to -1, got %f", got)
	}
	if got := volumeToPower(0.0); got != -10 {
		t.Errorf("zero must map to silent floor, got %f", got)
	}
	if got := volumeToPower(0.005); got != -10 {
		t.Errorf("near-zero must map to silent floor, got %f", got)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	m := New()

	m.SetVolume(1.7)
	if m.Volume() != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", m.Volume())
	}

	m.SetVolume(-0.3)
	if m.Volume() != 0.0 {
		t.Errorf("expected clamp to 0.0, got %f", m.Volume())
	}
}

func TestIdleState(t *testing.T) {
	m := New()

	if m.IsPlaying() || m.IsBusy() || m.IsPaused() {
		t.Error("fresh manager must be idle")
	}
	if m.Position() != 0 || m.Duration() != 0 {
		t.Error("fresh manager must report zero position/duration")
	}
	if m.Volume() != 1.0 {
		t.Errorf("default volume must be 1.0, got %f", m.Volume())
	}

	// Stop and Shutdown on an idle manager must be harmless.
	m.Stop()
	m.Shutdown()
}

func TestDecodeStreamerRejectsGarbage(t *testing.T) {
	m := New()

	path := filepath.Join(t.TempDir(), "bad.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.decodeStreamer(path); err == nil {
		t.Error("expected decode error for garbage input")
	}

	if _, _, err := m.decodeStreamer(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}
