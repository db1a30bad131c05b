package sfbank

import "testing"

func TestBuilderClampsSustain(t *testing.T) {
	b := NewBuilder("test")
	zone := NewZone()
	zone.Generators[GenSustainVolEnv] = 1500
	zone.Generators[GenSustainModEnv] = -40
	b.AddInstrument(Instrument{Name: "i", Zones: []Zone{zone}})

	bank := b.Build()
	got := bank.Instruments[0].Zones[0].Generators
	if got[GenSustainVolEnv] != 1000 {
		t.Errorf("expected sustain clamped to 1000 cB, got %d", got[GenSustainVolEnv])
	}
	if got[GenSustainModEnv] != 0 {
		t.Errorf("expected sustain clamped to 0 cB floor, got %d", got[GenSustainModEnv])
	}
}

func TestFindPreset(t *testing.T) {
	b := NewBuilder("test")
	b.AddPreset(Preset{Name: "p", Bank: 0, Number: 5})
	bank := b.Build()

	p, ok := bank.FindPreset(0, 5)
	if !ok || p.Name != "p" {
		t.Fatalf("expected to find preset 0/5")
	}
	if _, ok := bank.FindPreset(0, 6); ok {
		t.Errorf("expected no preset at 0/6")
	}
}

func TestZoneMatching(t *testing.T) {
	z := Zone{KeyLo: 60, KeyHi: 72, VelLo: 1, VelHi: 127}
	if !z.matches(65, 100) {
		t.Errorf("expected key 65 vel 100 to match")
	}
	if z.matches(40, 100) {
		t.Errorf("key 40 should not match")
	}
	if z.matches(65, 0) {
		t.Errorf("vel 0 should not match (vel ranges start at 1)")
	}
}

func TestInstrumentMatchingZonesSkipsGlobal(t *testing.T) {
	global := NewZone()
	global.IsGlobal = true
	local := NewZone()
	inst := Instrument{Zones: []Zone{global, local}}

	matches := inst.MatchingZones(60, 100)
	if len(matches) != 1 {
		t.Fatalf("expected 1 matching zone, got %d", len(matches))
	}
	if inst.GlobalZone() == nil {
		t.Errorf("expected to find global zone")
	}
}
