package config

import "testing"

func TestDefault(t *testing.T) {
	o := Default()

	if o.LabelLen != 20 {
		t.Errorf("unexpected LabelLen: %v", o.LabelLen)
	}
	if o.EdgeBlockSlots != 3 || o.PropBlockSlots != 3 {
		t.Error("unexpected block slot counts")
	}
	if o.MaxVertexLabels != 128 || o.MaxEdgeLabels != 128 {
		t.Error("unexpected label dictionary sizes")
	}
	if o.InitialFileSize != 1024 || o.GrowthFactor != 10 {
		t.Error("unexpected growth parameters")
	}
}

func TestPropertySize(t *testing.T) {
	o := Default()
	if got := o.PropertySize(); got != o.PropKeyLen+o.PropValLen {
		t.Errorf("PropertySize() = %v, want %v", got, o.PropKeyLen+o.PropValLen)
	}
}
