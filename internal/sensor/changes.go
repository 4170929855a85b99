package sensor

import (
	"math"

	"vitals_go/internal/models"
)

// Limiares mínimos para registrar uma mudança
const (
	minBPMChange  = 3.0
	minSpO2Change = 1.0
)

// changeTracker compara cada resultado com o último valor reportado de cada
// métrica, de forma que uma deriva lenta acaba registrada
type changeTracker struct {
	bpm    *float64
	spo2   *float64
	worn   bool
	primed bool
}

func optionalFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func boolValue(b bool) *float64 {
	v := 0.0
	if b {
		v = 1
	}
	return &v
}

// update retorna as mudanças relevantes em relação aos valores reportados
func (c *changeTracker) update(res models.VitalsResult) []models.VitalsChange {
	var changes []models.VitalsChange

	bpm := optionalFloat(res.HeartRateBPM)
	if change, ok := compare(models.VitalsChange{Metric: "bpm", Timestamp: res.Timestamp}, c.bpm, bpm, minBPMChange); ok {
		changes = append(changes, change)
		c.bpm = bpm
	}

	if change, ok := compare(models.VitalsChange{Metric: "spo2", Timestamp: res.Timestamp}, c.spo2, res.SpO2Percent, minSpO2Change); ok {
		changes = append(changes, change)
		if res.SpO2Percent != nil {
			v := *res.SpO2Percent
			c.spo2 = &v
		} else {
			c.spo2 = nil
		}
	}

	if c.primed && res.IsWorn != c.worn {
		changes = append(changes, models.VitalsChange{
			Metric:      "worn",
			OldValue:    boolValue(c.worn),
			NewValue:    boolValue(res.IsWorn),
			ChangeValue: *boolValue(res.IsWorn) - *boolValue(c.worn),
			Timestamp:   res.Timestamp,
		})
	}
	c.worn = res.IsWorn
	c.primed = true

	return changes
}

// compare decide se old -> cur é uma mudança. Aparecer ou sumir um valor
// sempre conta; entre dois valores, só a partir do limiar.
func compare(base models.VitalsChange, old, cur *float64, threshold float64) (models.VitalsChange, bool) {
	switch {
	case old == nil && cur == nil:
		return base, false
	case old == nil || cur == nil:
		base.OldValue, base.NewValue = old, cur
		return base, true
	}

	delta := *cur - *old
	if math.Abs(delta) < threshold {
		return base, false
	}
	o, n := *old, *cur
	base.OldValue, base.NewValue = &o, &n
	base.ChangeValue = delta
	return base, true
}

func (c *changeTracker) reset() {
	*c = changeTracker{}
}
