package services

const (
	StandardPoints      = 10
	StandardXP          = 15
	FirstDisposalPoints = 200
	FirstDisposalXP     = 50
	DiscoveryBonusXP    = 10
)

// AwardFor returns the server-side award for a disposal
func AwardFor(firstEver, newCategory bool) (points, xp int) {
	points, xp = StandardPoints, StandardXP
	if firstEver {
		points, xp = FirstDisposalPoints, FirstDisposalXP
	}
	if newCategory {
		xp += DiscoveryBonusXP
	}
	return points, xp
}

type rankStep struct {
	below int
	name  string
}

var ranks = []rankStep{
	{100, "Eco Novice"},
	{300, "Eco Cadet"},
	{600, "Eco Guardian"},
	{1000, "Eco Champion"},
	{1500, "Eco Master"},
}

const topRank = "Eco Legend"

// EcoRank names the rank for an XP total
func EcoRank(xp int) string {
	for _, r := range ranks {
		if xp < r.below {
			return r.name
		}
	}
	return topRank
}

// NextRankAt returns the XP needed for the next rank, or nil at the top rank
func NextRankAt(xp int) *int {
	for _, r := range ranks {
		if xp < r.below {
			next := r.below
			return &next
		}
	}
	return nil
}
