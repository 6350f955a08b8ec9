package services

import (
	"fmt"
	"hash/fnv"

	"trackeco/internal/models"
)

const ChallengeReward = 50

// ChallengePool is the set of daily challenges users are assigned from
var ChallengePool = []models.Challenge{
	{ID: "plastic-count", Kind: models.ChallengeCount, Category: "plastic", Goal: 5, Reward: ChallengeReward, Description: "Dispose of 5 plastic items today"},
	{ID: "metal-count", Kind: models.ChallengeCount, Category: "metal", Goal: 3, Reward: ChallengeReward, Description: "Dispose of 3 metal items today"},
	{ID: "glass-count", Kind: models.ChallengeCount, Category: "glass", Goal: 2, Reward: ChallengeReward, Description: "Dispose of 2 glass items today"},
	{ID: "metal-variety", Kind: models.ChallengeVariety, Category: "metal", Goal: 3, Reward: ChallengeReward, Description: "Dispose of 3 different metal subtypes today"},
	{ID: "plastic-variety", Kind: models.ChallengeVariety, Category: "plastic", Goal: 4, Reward: ChallengeReward, Description: "Dispose of 4 different plastic subtypes today"},
	{ID: "hotspot", Kind: models.ChallengeHotspot, Goal: 1, Reward: ChallengeReward, Description: "Complete 1 disposal inside a litter hotspot"},
	{ID: "paper-count", Kind: models.ChallengeCount, Category: "paper", Goal: 3, Reward: ChallengeReward, Description: "Dispose of 3 paper or cardboard items today"},
}

// DailyChallenge picks the user's challenge for a UTC day. The pick is a hash
// of user and day, so every server instance assigns the same one.
func DailyChallenge(userID, day string) models.Challenge {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(day))
	return ChallengePool[h.Sum32()%uint32(len(ChallengePool))]
}

// ChallengeCompletedMessage is the ack line for a finished daily challenge
func ChallengeCompletedMessage(bonus int) string {
	return fmt.Sprintf("Daily Challenge Complete! +%d points", bonus)
}

// ChallengeByID looks a challenge up in the pool
func ChallengeByID(id string) (models.Challenge, bool) {
	for _, c := range ChallengePool {
		if c.ID == id {
			return c, true
		}
	}
	return models.Challenge{}, false
}
