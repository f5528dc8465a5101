package fade

import (
	"testing"

	"github.com/rustyguts/bken-engine/config"
)

func TestStartFadeSpansBlockSizeSamplesPerBlock(t *testing.T) {
	var d Driver
	d.StartFade(1, 1)

	for i := 0; i < config.BlockSize; i++ {
		if d.Done() {
			t.Fatalf("fade finished early at sample %d, want %d samples total", i, config.BlockSize)
		}
		d.Advance()
	}
	if d.Value() != 1 {
		t.Fatalf("expected the fade to reach target after %d samples, got %v", config.BlockSize, d.Value())
	}
	if !d.Done() {
		t.Fatal("expected the fade to be done after config.BlockSize samples")
	}
}

func TestStartFadeRampsLinearlyAcrossSamples(t *testing.T) {
	var d Driver
	d.StartFade(10, 1)

	half := config.BlockSize / 2
	for i := 0; i < half; i++ {
		d.Advance()
	}
	v := d.Value()
	if v < 4.5 || v > 5.5 {
		t.Fatalf("expected roughly the midpoint value after half the samples, got %v", v)
	}
}

func TestCombinedMultipliesBothDriversAndAdvancesEach(t *testing.T) {
	a := NewSteady(2)
	b := NewSteady(3)

	got := Combined(&a, &b)
	if got != 6 {
		t.Fatalf("Combined = %v, want 6", got)
	}
}
