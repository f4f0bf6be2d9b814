package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	a := reg.ID("~Alice1")
	assert.Equal(t, a, reg.ID("~Alice1"))
	b := reg.ID("~Bob1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "~Bob1", reg.Name(b))
	assert.Equal(t, 2, reg.Len())

	_, ok := reg.Lookup("~Carol1")
	assert.False(t, ok)
	assert.Equal(t, 2, reg.Len())
}

func TestCohortAlgebra(t *testing.T) {
	reg := NewRegistry()
	agreed := reg.Cohort("~A", "~B", "~C")
	active := reg.Cohort("~B", "~C", "~D")

	assert.Equal(t, []string{"~B", "~C"}, agreed.And(active).Members())
	assert.Equal(t, []string{"~A", "~B", "~C", "~D"}, agreed.Or(active).Members())
	assert.Equal(t, []string{"~A"}, agreed.AndNot(active).Members())
	assert.Equal(t, 3, agreed.Len())

	assert.True(t, agreed.Contains("~A"))
	assert.False(t, agreed.Contains("~D"))
	assert.False(t, agreed.Contains("~Nobody"))

	assert.True(t, reg.Cohort().IsEmpty())
}
