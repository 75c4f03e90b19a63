package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment on an anime. Replies point at their parent through ParentID and are
// nested under it when the anime detail is read.
type Comment struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	AnimeID   primitive.ObjectID  `json:"animeId" bson:"animeId"`
	UserID    string              `json:"userId" bson:"userId"`
	ParentID  *primitive.ObjectID `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Text      string              `json:"text" bson:"text"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
	Replies   []*Comment          `json:"replies,omitempty" bson:"-"`
}

type CommentRequest struct {
	Text     string `json:"text" validate:"required,max=2000"`
	ParentID string `json:"parentId,omitempty" validate:"omitempty,mongodb"`
}
