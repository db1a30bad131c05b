package sfbank

// Builder constructs a Bank in memory. It is the supported way to get a
// *Bank without a real .sf2 file and a binary parser (out of scope, spec
// §1) — used by package tests and by cmd/ tools exercising the engine
// without a soundfont on disk.
type Builder struct {
	bank Bank
}

// NewBuilder starts a new bank under construction.
func NewBuilder(name string) *Builder {
	return &Builder{bank: Bank{Name: name}}
}

// AddSample appends a sample and returns its index for use in
// AddInstrument zones.
func (b *Builder) AddSample(s Sample) int {
	b.bank.Samples = append(b.bank.Samples, s)
	return len(b.bank.Samples) - 1
}

// AddInstrument appends an instrument and returns its index for use in
// AddPreset zones.
func (b *Builder) AddInstrument(inst Instrument) int {
	b.bank.Instruments = append(b.bank.Instruments, inst)
	return len(b.bank.Instruments) - 1
}

// AddPreset appends a preset.
func (b *Builder) AddPreset(p Preset) int {
	b.bank.Presets = append(b.bank.Presets, p)
	return len(b.bank.Presets) - 1
}

// Build clamps ingest-time values per spec §9's Open Question (SF2 sustain
// generators can exceed the spec's ≤1000 cB ceiling; clamp rather than
// guess) and returns the finished, immutable Bank.
func (b *Builder) Build() *Bank {
	clampSustain := func(gens *GeneratorVector) {
		if gens[GenSustainVolEnv] > 1000 {
			gens[GenSustainVolEnv] = 1000
		}
		if gens[GenSustainVolEnv] < 0 {
			gens[GenSustainVolEnv] = 0
		}
		if gens[GenSustainModEnv] > 1000 {
			gens[GenSustainModEnv] = 1000
		}
		if gens[GenSustainModEnv] < 0 {
			gens[GenSustainModEnv] = 0
		}
	}
	for pi := range b.bank.Presets {
		for zi := range b.bank.Presets[pi].Zones {
			clampSustain(&b.bank.Presets[pi].Zones[zi].Generators)
		}
	}
	for ii := range b.bank.Instruments {
		for zi := range b.bank.Instruments[ii].Zones {
			clampSustain(&b.bank.Instruments[ii].Zones[zi].Generators)
		}
	}
	bank := b.bank
	return &bank
}

// NewZone returns a fully-keyed-and-veloed Zone with default generators,
// convenient for Builder callers.
func NewZone() Zone {
	return Zone{
		KeyLo: 0, KeyHi: 127,
		VelLo: 0, VelHi: 127,
		Generators: DefaultGenerators,
	}
}
