// Package entrance models the admission procedure shown to families: which
// steps a branch/flow goes through, what each step asks for, and where its
// call-to-action points. Everything here is pure.
package entrance

// BranchType is the age-based program track.
type BranchType string

const (
	BranchKinder BranchType = "kinder"
	BranchJunior BranchType = "junior"
	BranchMiddle BranchType = "middle"

	// BranchKinderSingle is a kinder class run by the junior campus. It has
	// members and staff but no admission procedure of its own.
	BranchKinderSingle BranchType = "kinder_single"
)

var (
	// Branches lists the tracks that have an admission procedure.
	Branches = []BranchType{BranchKinder, BranchJunior, BranchMiddle}

	// AllBranches lists every branch a member or staff account can belong to.
	AllBranches = []string{string(BranchKinder), string(BranchJunior), string(BranchMiddle), string(BranchKinderSingle)}
)

// FlowType distinguishes new enrollment from mid-year transfer. Only kinder uses it.
type FlowType string

const (
	FlowTransfer FlowType = "transfer"
	FlowRegular  FlowType = "regular"
)

// ParseBranch defaults an absent value to kinder. Unknown values are kept as-is
// and produce an empty step sequence.
func ParseBranch(s string) BranchType {
	if s == "" {
		return BranchKinder
	}
	return BranchType(s)
}

// ParseFlow defaults an absent value to transfer.
func ParseFlow(s string) FlowType {
	if s == "" {
		return FlowTransfer
	}
	return FlowType(s)
}

func (b BranchType) Valid() bool {
	switch b {
	case BranchKinder, BranchJunior, BranchMiddle:
		return true
	}
	return false
}

func (b BranchType) IsExamTrack() bool {
	return b == BranchJunior || b == BranchMiddle
}

func (f FlowType) Valid() bool {
	return f == FlowTransfer || f == FlowRegular
}
