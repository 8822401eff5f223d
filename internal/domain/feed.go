package domain

// ActivitySource tells where an entry of the unified activity feed came from.
type ActivitySource string

const (
	SourceManual  ActivitySource = "manual"
	SourceVisit   ActivitySource = "visit"
	SourceListing ActivitySource = "listing"
)

// FeedItem is one entry of the unified activity feed. The set of
// implementations is closed: ManualActivity, VisitActivity, ListingActivity.
type FeedItem interface {
	// Activity projects the entry onto the flat activity shape.
	Activity() Activity
	Source() ActivitySource
	feedItem()
}

// ManualActivity is an activity the agent logged.
type ManualActivity struct {
	Record Activity
}

func (m ManualActivity) Activity() Activity     { return m.Record }
func (m ManualActivity) Source() ActivitySource { return SourceManual }
func (ManualActivity) feedItem()                {}

// VisitActivity is synthesized from a completed visit.
type VisitActivity struct {
	Visit       Visit
	ContactName string
}

func (v VisitActivity) Activity() Activity {
	notes := v.Visit.Feedback
	if v.Visit.NextSteps != "" {
		if notes != "" {
			notes += " | "
		}
		notes += v.Visit.NextSteps
	}
	return Activity{
		ID:              "visit-" + v.Visit.ID,
		Date:            v.Visit.Date,
		Type:            ActivityVisit,
		ContactID:       v.Visit.BuyerClientID,
		ContactName:     v.ContactName,
		Notes:           notes,
		ReferenceID:     v.Visit.ID,
		SystemGenerated: true,
	}
}
func (VisitActivity) Source() ActivitySource { return SourceVisit }
func (VisitActivity) feedItem()              {}

// ListingActivity is synthesized from a property listing: taking the
// listing is an implicit captación dated by the property's creation.
type ListingActivity struct {
	Property    Property
	Date        string
	ContactName string
}

func (l ListingActivity) Activity() Activity {
	notes := l.Property.Title
	if notes == "" {
		notes = l.Property.Address
	}
	return Activity{
		ID:              "prop-" + l.Property.ID,
		Date:            l.Date,
		Type:            ActivityCaptacion,
		ContactID:       l.Property.SellerID,
		ContactName:     l.ContactName,
		Notes:           notes,
		ReferenceID:     l.Property.ID,
		SystemGenerated: true,
	}
}
func (ListingActivity) Source() ActivitySource { return SourceListing }
func (ListingActivity) feedItem()              {}

// FeedEntry is the JSON shape of a feed item.
type FeedEntry struct {
	Activity
	Source ActivitySource `json:"source"`
}

// ToFeedEntry flattens a feed item for serialization.
func ToFeedEntry(item FeedItem) FeedEntry {
	return FeedEntry{Activity: item.Activity(), Source: item.Source()}
}
