package simulate

import (
	"fmt"
	"log"
	"sort"

	"github.com/okian/leap/internal/domain/grade"
)

// verifyResults checks rankings and the leaderboard for consistency.
func verifyResults(config *Config, rankings, leaderboard []Entry) error {
	log.Println("verifying results...")

	if len(rankings) == 0 {
		return fmt.Errorf("no rankings to verify")
	}

	sortedRankings := make([]Entry, len(rankings))
	copy(sortedRankings, rankings)
	sort.Slice(sortedRankings, func(i, j int) bool {
		return sortedRankings[i].HeightCm > sortedRankings[j].HeightCm
	})

	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(sortedRankings, leaderboard); err != nil {
			log.Printf("leaderboard consistency warning: %v", err)
		} else {
			log.Println("leaderboard consistency verified")
		}
	}

	displayTopJumpers(sortedRankings, leaderboard, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks the leaderboard against the
// per-subject rank lookups.
func verifyLeaderboardConsistency(sortedRankings, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	topRanking := sortedRankings[0]
	topLeaderboard := leaderboard[0]

	if topRanking.SubjectID != topLeaderboard.SubjectID {
		return fmt.Errorf("top leaderboard entry (%s) does not match top ranked subject (%s)",
			topLeaderboard.SubjectID, topRanking.SubjectID)
	}

	if topRanking.HeightCm != topLeaderboard.HeightCm {
		return fmt.Errorf("top leaderboard height (%.1f) does not match top ranked height (%.1f)",
			topLeaderboard.HeightCm, topRanking.HeightCm)
	}

	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].HeightCm > leaderboard[i-1].HeightCm {
			return fmt.Errorf("leaderboard not properly sorted: entry %d is higher than entry %d", i, i-1)
		}
	}

	return nil
}

// displayTopJumpers shows the best jumps from rankings and leaderboard.
func displayTopJumpers(sortedRankings, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sortedRankings) < topN {
		topN = len(sortedRankings)
	}

	log.Printf("top %d jumps from rankings:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedRankings[i]
		log.Printf("   %d. %s - %.1fcm (%s)", i+1, entry.SubjectID, entry.HeightCm, grade.Classify(entry.HeightCm).Label)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("top %d jumps from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s - %.1fcm", i+1, entry.SubjectID, entry.HeightCm)
		}
	}

	if verbose && len(sortedRankings) > 0 {
		log.Printf(`height statistics:
   Average: %.1fcm
   Maximum: %.1fcm
   Minimum: %.1fcm
`, averageHeight(sortedRankings), sortedRankings[0].HeightCm, sortedRankings[len(sortedRankings)-1].HeightCm)
	}
}

// averageHeight computes the mean best height across rankings.
func averageHeight(rankings []Entry) float64 {
	if len(rankings) == 0 {
		return 0
	}

	sum := 0.0
	for _, entry := range rankings {
		sum += entry.HeightCm
	}

	return sum / float64(len(rankings))
}
