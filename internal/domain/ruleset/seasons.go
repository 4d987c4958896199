package ruleset

import "github.com/okian/ace/internal/domain/model"

// Legacy seasons predate usable score breakdowns and use the alliance score
// as a proxy for teleop.
const (
	LegacyFirstYear = 2002
	LegacyLastYear  = 2021
)

// legacy scores every point as teleop; auto and endgame are always zero.
func legacy(year int) Ruleset {
	return &phaseRuleset{
		year:         year,
		autoPoints:   nil,
		teleopPoints: func(b model.Breakdown) float64 { return b.Score },
	}
}

// 2022, Rapid React.
func rapidReact() Ruleset {
	return &phaseRuleset{
		year: 2022,
		autoPoints: func(b model.Breakdown) float64 {
			return b.Float("autoTaxiPoints") + b.Float("autoCargoPoints")
		},
		teleopPoints: func(b model.Breakdown) float64 {
			return b.Float("teleopCargoPoints")
		},
		endgameField: robotField("endgameRobot"),
		endgame: map[string]float64{
			"Low":       4,
			"Mid":       6,
			"High":      10,
			"Traversal": 15,
		},
	}
}

// 2023, Charged Up.
func chargedUp() Ruleset {
	return &phaseRuleset{
		year: 2023,
		autoPoints: func(b model.Breakdown) float64 {
			return b.Float("autoMobilityPoints") + b.Float("autoGamePiecePoints") + b.Float("autoChargeStationPoints")
		},
		teleopPoints: func(b model.Breakdown) float64 {
			return b.Float("teleopGamePiecePoints") + b.Float("linkPoints")
		},
		endgameField: robotField("endGameChargeStationRobot"),
		endgame: map[string]float64{
			"Park":   2,
			"Docked": 6,
		},
		endgameBonus: func(b model.Breakdown, state string) float64 {
			// Engaged: docked on a level bridge.
			if state == "Docked" && b.String("endGameBridgeState") == "Level" {
				return 4
			}
			return 0
		},
	}
}

// 2024, Crescendo.
func crescendo() Ruleset {
	return &phaseRuleset{
		year: 2024,
		autoPoints: func(b model.Breakdown) float64 {
			return b.Float("autoLeavePoints") +
				5*b.Float("autoSpeakerNoteCount") +
				2*b.Float("autoAmpNoteCount")
		},
		teleopPoints: func(b model.Breakdown) float64 {
			return 2*b.Float("teleopSpeakerNoteCount") +
				5*b.Float("teleopSpeakerNoteAmplifiedCount") +
				b.Float("teleopAmpNoteCount")
		},
		endgameField: robotField("endGameRobot"),
		endgame: map[string]float64{
			"Parked":      1,
			"StageLeft":   3,
			"StageRight":  3,
			"CenterStage": 3,
		},
	}
}

// Reefscape coral and algae values.
const (
	reefAutoTrough = 3
	reefAutoBot    = 4
	reefAutoMid    = 6
	reefAutoTop    = 7

	reefTeleopTrough = 2
	reefTeleopBot    = 3
	reefTeleopMid    = 4
	reefTeleopTop    = 5

	algaeNet       = 4
	algaeProcessor = 2.5
)

// 2025, Reefscape.
func reefscape() Ruleset {
	return &phaseRuleset{
		year: 2025,
		autoPoints: func(b model.Breakdown) float64 {
			return b.Float("autoMobilityPoints") +
				reefAutoTrough*b.Float("autoReef.trough") +
				reefAutoBot*b.Float("autoReef.tba_botRowCount") +
				reefAutoMid*b.Float("autoReef.tba_midRowCount") +
				reefAutoTop*b.Float("autoReef.tba_topRowCount")
		},
		teleopPoints: func(b model.Breakdown) float64 {
			return reefTeleopTrough*b.Float("teleopReef.trough") +
				reefTeleopBot*b.Float("teleopReef.tba_botRowCount") +
				reefTeleopMid*b.Float("teleopReef.tba_midRowCount") +
				reefTeleopTop*b.Float("teleopReef.tba_topRowCount") +
				algaeNet*b.Float("netAlgaeCount") +
				algaeProcessor*b.Float("wallAlgaeCount")
		},
		endgameField: robotField("endGameRobot"),
		endgame: map[string]float64{
			"DeepCage":    12,
			"ShallowCage": 6,
			"Parked":      2,
		},
	}
}
