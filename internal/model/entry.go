package model

import "time"

// Mood is the classification of one entry
type Mood string

const (
	Amazing  Mood = "amazing"
	Happy    Mood = "happy"
	Okay     Mood = "okay"
	Sad      Mood = "sad"
	Terrible Mood = "terrible"
)

// Moods returns every known mood in display order
func Moods() []Mood {
	return []Mood{Amazing, Happy, Okay, Sad, Terrible}
}

// Entry is one recorded mood. It is never changed after creation
type Entry struct {
	ID        int64     `bson:"id" json:"id" firestore:"id"`
	Mood      Mood      `bson:"mood" json:"mood" firestore:"mood"`
	Note      string    `bson:"note" json:"note" firestore:"note"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" firestore:"timestamp"`
	Owner     string    `bson:"owner" json:"owner" firestore:"userId"`
}
