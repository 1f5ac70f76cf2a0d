package model

import "time"

type Comment struct {
	ID       int64     `json:"id" bson:"_id"`
	Text     string    `json:"text" bson:"text"`
	ItemID   int64     `json:"item_id" bson:"item_id"`
	AuthorID int64     `json:"author_id" bson:"author_id"`
	Created  time.Time `json:"created" bson:"created"`
}

type CommentInput struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

type CommentView struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"author_name"`
	Created    time.Time `json:"created"`
}
