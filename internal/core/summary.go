package core

import (
	"math"
	"strconv"
)

// NotAvailable is the display value for an undefined metric.
const NotAvailable = "N/A"

// Percentage is a ratio scaled to 0..100 and rounded to two decimals.
// Defined is false when the denominator was zero.
type Percentage struct {
	Value   float64
	Defined bool
}

// NewPercentage returns num/den*100 rounded to two decimals, or an
// undefined percentage when den is zero.
func NewPercentage(num, den int64) Percentage {
	if den == 0 {
		return Percentage{}
	}
	v := float64(num) / float64(den) * 100
	return Percentage{Value: math.Round(v*100) / 100, Defined: true}
}

func (p Percentage) String() string {
	if !p.Defined {
		return NotAvailable
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

// MarshalText renders undefined percentages as "N/A" instead of NaN.
func (p Percentage) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// KPIs are the four headline metrics.
type KPIs struct {
	Total      int64
	Closed     int64
	Timely     Percentage
	InProgress int64
}

// Bucket is one row of a grouped summary.
type Bucket struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Summary maps each distinct value of a column to its summed count.
type Summary struct {
	Column  Column   `json:"column"`
	Buckets []Bucket `json:"buckets"`
}

// Total sums all bucket values.
func (s Summary) Total() int64 {
	var n int64
	for _, b := range s.Buckets {
		n += b.Value
	}
	return n
}

// Keys returns bucket keys in order.
func (s Summary) Keys() []string {
	out := make([]string, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = b.Key
	}
	return out
}

// TreeNode is one node of the state -> issue -> sub_issue breakdown. Value
// is the leaf count for leaves and the sum of children otherwise.
type TreeNode struct {
	Name     string     `json:"name"`
	Value    int64      `json:"value"`
	Children []TreeNode `json:"children,omitempty"`
}

// Find returns the direct child with the given name.
func (n TreeNode) Find(name string) (TreeNode, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return TreeNode{}, false
}

// LeafSum adds up the values of every leaf below n.
func (n TreeNode) LeafSum() int64 {
	if len(n.Children) == 0 {
		return n.Value
	}
	var total int64
	for _, c := range n.Children {
		total += c.LeafSum()
	}
	return total
}
