package main

import (
	"fmt"
	"strconv"
	"strings"
)

// localLabelChar separates a local label's number from its instance count
// in the generated symbol name.
const localLabelChar = '\x02'

// fbLabelSpecial mirrors FB_LABEL_SPECIAL in symbols.c: the first ten label
// numbers (0-9, the only ones assemblers ever actually use) get a flat
// array slot; anything larger falls into the sparse list below. Ported
// verbatim rather than simplified to a single map so label 0-9 lookups stay
// O(1) the way the original's fb_low_counter does.
const fbLabelSpecial = 10

// LocalLabelState is the sparse instance-counter table behind `N:`/`Nb`/`Nf`,
// ported from symbols.c's fb_label_instance/fb_label_instance_inc.
// One set of counters exists for the entire assembly, not per-section:
// a local label can be referenced across section boundaries.
type LocalLabelState struct {
	low      [fbLabelSpecial]int32
	labels    []int32 // label numbers >= fbLabelSpecial seen so far
	instances []int32 // parallel instance counts
}

func newLocalLabelState() *LocalLabelState {
	return &LocalLabelState{}
}

// instance returns the current instance count for label n (0 if never
// defined yet), matching fb_label_instance.
func (lls *LocalLabelState) instance(n int32) int32 {
	if n < fbLabelSpecial {
		return lls.low[n]
	}
	for i, l := range lls.labels {
		if l == n {
			return lls.instances[i]
		}
	}
	return 0
}

// incInstance bumps label n's instance counter, matching
// fb_label_instance_inc. Called once per "n:" definition.
func (lls *LocalLabelState) incInstance(n int32) {
	if n < fbLabelSpecial {
		lls.low[n]++
		return
	}
	for i, l := range lls.labels {
		if l == n {
			lls.instances[i]++
			return
		}
	}
	lls.labels = append(lls.labels, n)
	lls.instances = append(lls.instances, 1)
}

// name builds the mangled symbol name for the augend-th occurrence of label
// n: augend 0 for a backward reference (Nb) or for a definition (N:, called
// after the instance count is bumped), 1 for a forward reference (Nf),
// matching fb_label_name.
func (lls *LocalLabelState) name(n int32, augend int32) string {
	return fmt.Sprintf("L%d%c%d", n, localLabelChar, lls.instance(n)+augend)
}

// isLocalLabelName reports whether name was produced by LocalLabelState.name
// (i.e. "L<digits>\x02<digits>").
func isLocalLabelName(name string) bool {
	if !strings.HasPrefix(name, "L") {
		return false
	}
	idx := strings.IndexByte(name, localLabelChar)
	if idx < 2 {
		return false
	}
	if _, err := strconv.Atoi(name[1:idx]); err != nil {
		return false
	}
	if _, err := strconv.Atoi(name[idx+1:]); err != nil {
		return false
	}
	return true
}

// LocalColon defines "n:" at the current position: bump n's instance count,
// then colon-define the mangled name as an ordinary section-relative label.
func (st *SymbolTable) LocalColon(n int32, sect uint8, frag *Frag, offset int64) (*Symbol, error) {
	st.locals.incInstance(n)
	name := st.locals.name(n, 0)
	return st.Colon(name, sect, frag, offset)
}

// LocalReference resolves "Nb" (backward=true) or "Nf" (backward=false) to
// the symbol table entry for the referenced occurrence, creating it as
// undefined if the forward occurrence hasn't been defined yet.
func (st *SymbolTable) LocalReference(n int32, backward bool) *Symbol {
	var augend int32
	if !backward {
		augend = 1
	}
	name := st.locals.name(n, augend)
	return st.Lookup(name)
}
