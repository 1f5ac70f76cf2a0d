package model

import "time"

type Request struct {
	ID          int64     `json:"id" bson:"_id"`
	Description string    `json:"description" bson:"description"`
	RequestorID int64     `json:"requestor_id" bson:"requestor_id"`
	Created     time.Time `json:"created" bson:"created"`
}

type RequestInput struct {
	Description string `json:"description" validate:"notblank,max=2000"`
}

type RequestItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	OwnerID     int64  `json:"owner_id"`
	RequestID   int64  `json:"request_id"`
}

type RequestView struct {
	ID          int64          `json:"id"`
	Description string         `json:"description"`
	Created     time.Time      `json:"created"`
	Items       []*RequestItem `json:"items"`
}

func NewRequestView(r *Request, items []*Item) *RequestView {
	view := &RequestView{
		ID:          r.ID,
		Description: r.Description,
		Created:     r.Created,
		Items:       make([]*RequestItem, 0, len(items)),
	}
	for _, it := range items {
		view.Items = append(view.Items, &RequestItem{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Available:   it.Available,
			OwnerID:     it.OwnerID,
			RequestID:   r.ID,
		})
	}
	return view
}
