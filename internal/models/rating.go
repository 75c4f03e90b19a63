package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingDoc is one user's rating of one anime. (animeId, userId) is unique.
type RatingDoc struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AnimeID   primitive.ObjectID `json:"animeId" bson:"animeId"`
	UserID    string             `json:"userId" bson:"userId"`
	Value     int                `json:"value" bson:"value"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// RateRequest is the body of POST /anime/{id}/rate.
type RateRequest struct {
	Value int `json:"value" validate:"min=1,max=5"`
}

// RatingResult is returned after a rating is stored.
type RatingResult struct {
	AnimeID       string  `json:"animeId"`
	Value         int     `json:"value"`
	Created       bool    `json:"created"`
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int64   `json:"ratingsCount"`
}
