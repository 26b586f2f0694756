package model

// Review is one customer review, tagged with the product it was written for.
type Review struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"productId"`
	ProductTitle  string       `json:"productTitle"`
	Slug          string       `json:"slug"`
	Title         string       `json:"title,omitempty"`
	Text          string       `json:"text,omitempty"`
	Rating        float64      `json:"rating"`
	Language      string       `json:"language"`
	PublishedDate string       `json:"publishedDate,omitempty"`
	TravelMonth   string       `json:"travelDate,omitempty"`
	HelpfulVotes  int          `json:"helpfulVotes"`
	URL           string       `json:"url,omitempty"`
	Author        ReviewAuthor `json:"author"`
}

type ReviewAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName,omitempty"`
	Country     string `json:"country,omitempty"`
	AvatarURL   string `json:"avatarUrl"`
}
