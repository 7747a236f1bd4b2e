// Package story holds the storytelling domain entities persisted through the
// data layer. The repositories treat them as opaque payloads; only the
// identifier, owner and type name matter to persistence.
package story

import (
	"time"

	"github.com/google/uuid"
)

// Choice is one option a player can pick at the end of a chapter.
type Choice struct {
	ID          string `json:"id" dynamodbav:"Id"`
	Text        string `json:"text" dynamodbav:"Text"`
	NextChapter string `json:"nextChapter" dynamodbav:"NextChapter"`
}

// Chapter is an owned sub-document of a Scenario. It has no independent
// partition identity, so the partition-key hook never touches it.
type Chapter struct {
	ID      string   `json:"id" dynamodbav:"Id"`
	Title   string   `json:"title" dynamodbav:"Title"`
	Body    string   `json:"body" dynamodbav:"Body"`
	Choices []Choice `json:"choices" dynamodbav:"Choices"`
}

// Scenario is an authored interactive story.
type Scenario struct {
	ID        string    `json:"id" dynamodbav:"Id"`
	UserID    string    `json:"userId" dynamodbav:"UserId"`
	Title     string    `json:"title" dynamodbav:"Title"`
	AgeRating string    `json:"ageRating" dynamodbav:"AgeRating"`
	Tags      []string  `json:"tags" dynamodbav:"Tags"`
	Chapters  []Chapter `json:"chapters" dynamodbav:"Chapters"`
	Version   int       `json:"version" dynamodbav:"Version"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

func (s Scenario) GetID() string { return s.ID }
func (s Scenario) GetUserID() string { return s.UserID }
func (s Scenario) EntityType() string { return "Scenario" }

// NewScenario creates a scenario with a fresh identifier.
func NewScenario(userID, title, ageRating string) Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		AgeRating: ageRating,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GameSession tracks one player's progress through a scenario.
type GameSession struct {
	ID             string     `json:"id" dynamodbav:"Id"`
	UserID         string     `json:"userId" dynamodbav:"UserId"`
	ScenarioID     string     `json:"scenarioId" dynamodbav:"ScenarioId"`
	CurrentChapter string     `json:"currentChapter" dynamodbav:"CurrentChapter"`
	ChoiceHistory  []string   `json:"choiceHistory" dynamodbav:"ChoiceHistory"`
	Version        int        `json:"version" dynamodbav:"Version"`
	StartedAt      time.Time  `json:"startedAt" dynamodbav:"StartedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" dynamodbav:"CompletedAt,omitempty"`
}

func (g GameSession) GetID() string { return g.ID }
func (g GameSession) GetUserID() string { return g.UserID }
func (g GameSession) EntityType() string { return "GameSession" }

// NewGameSession starts a session at the scenario's first chapter.
func NewGameSession(userID, scenarioID, firstChapter string) GameSession {
	return GameSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		ScenarioID:     scenarioID,
		CurrentChapter: firstChapter,
		Version:        1,
		StartedAt:      time.Now().UTC(),
	}
}

// CompassAxis aggregates a player's choices along one moral-compass axis
// (e.g. "courage"). It is keyed by the axis name rather than a surrogate ID,
// which is why the partition-key hook mirrors Axis instead of Id for it.
type CompassAxis struct {
	Axis      string    `json:"axis" dynamodbav:"Axis"`
	UserID    string    `json:"userId" dynamodbav:"UserId"`
	Score     int       `json:"score" dynamodbav:"Score"`
	Samples   int       `json:"samples" dynamodbav:"Samples"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

func (c CompassAxis) GetID() string { return c.Axis }
func (c CompassAxis) GetUserID() string { return c.UserID }
func (c CompassAxis) EntityType() string { return "CompassAxis" }
