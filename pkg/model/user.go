package model

type User struct {
	ID    int64  `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

type UserInput struct {
	Name  string `json:"name" validate:"notblank,max=255"`
	Email string `json:"email" validate:"notblank,email,max=512"`
}

// UserUpdate is a partial update; blank fields keep the stored value.
type UserUpdate struct {
	Name  string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=512"`
}

type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
