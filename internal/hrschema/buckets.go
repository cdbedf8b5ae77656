package hrschema

// Bucket labels for the derived columns, in ascending order.
var (
	TenureBands = []string{"0-2 yrs", "3-5 yrs", "6-10 yrs", "11-20 yrs", "21+ yrs"}
	IncomeBands = []string{"low", "medium", "high", "very high"}
	AgeGroups   = []string{"18-25", "26-35", "36-45", "46-55", "56-65"}
)

// TenureBand buckets years at company into a labeled tenure bracket.
func TenureBand(years int64) string {
	switch {
	case years <= 2:
		return TenureBands[0]
	case years <= 5:
		return TenureBands[1]
	case years <= 10:
		return TenureBands[2]
	case years <= 20:
		return TenureBands[3]
	default:
		return TenureBands[4]
	}
}

// IncomeBand buckets monthly income into a labeled income bracket.
func IncomeBand(income int64) string {
	switch {
	case income < 3000:
		return IncomeBands[0]
	case income < 7000:
		return IncomeBands[1]
	case income < 12000:
		return IncomeBands[2]
	default:
		return IncomeBands[3]
	}
}

// AgeGroup buckets age into a labeled range.
func AgeGroup(age int64) string {
	switch {
	case age <= 25:
		return AgeGroups[0]
	case age <= 35:
		return AgeGroups[1]
	case age <= 45:
		return AgeGroups[2]
	case age <= 55:
		return AgeGroups[3]
	default:
		return AgeGroups[4]
	}
}
