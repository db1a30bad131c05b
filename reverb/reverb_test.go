package reverb

import "testing"

func TestConvolverPassesImpulseThroughAsIR(t *testing.T) {
	const blockSize = 8
	ir := []float64{1, 0.5, 0.25}
	c := NewConvolver(blockSize, ir, nil)

	block := make([][2]float64, blockSize)
	block[0][0] = 1
	block[0][1] = 1
	c.Process(block)

	if block[0][0] < 0.99 || block[0][0] > 1.01 {
		t.Errorf("expected unit impulse to reproduce IR[0]=1, got %v", block[0][0])
	}
	if block[1][0] < 0.49 || block[1][0] > 0.51 {
		t.Errorf("expected IR[1]=0.5 at lag 1, got %v", block[1][0])
	}
	if block[2][0] < 0.24 || block[2][0] > 0.26 {
		t.Errorf("expected IR[2]=0.25 at lag 2, got %v", block[2][0])
	}
}

func TestConvolverCarriesTailAcrossBlocks(t *testing.T) {
	const blockSize = 4
	ir := make([]float64, 10)
	ir[5] = 1 // energy lands entirely beyond one block, inside the second
	c := NewConvolver(blockSize, ir, nil)

	block1 := make([][2]float64, blockSize)
	block1[0][0] = 1
	c.Process(block1)

	block2 := make([][2]float64, blockSize)
	c.Process(block2)

	var found bool
	for _, s := range block2 {
		if s[0] > 0.9 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the delayed IR tail to surface in the second block, got %+v", block2)
	}
}

func TestDefaultImpulseResponseDecays(t *testing.T) {
	ir := DefaultImpulseResponse(1000, 0.5)
	if len(ir) != 500 {
		t.Fatalf("expected 500 samples, got %d", len(ir))
	}
	// crude decay check: energy in the first tenth should exceed energy in
	// the last tenth.
	var early, late float64
	tenth := len(ir) / 10
	for i := 0; i < tenth; i++ {
		early += ir[i] * ir[i]
	}
	for i := len(ir) - tenth; i < len(ir); i++ {
		late += ir[i] * ir[i]
	}
	if early <= late {
		t.Errorf("expected decaying envelope: early=%v late=%v", early, late)
	}
}
