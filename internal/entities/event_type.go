package entities

import "strconv"

// EventTypeID classifies a Log row. Values are persisted.
type EventTypeID uint

const (
	EventCategoryCreate       EventTypeID = 8
	EventCategoryDelete       EventTypeID = 9
	EventCategoryUpdate       EventTypeID = 10
	EventTranslatorCreate     EventTypeID = 11
	EventTranslatorDelete     EventTypeID = 12
	EventTranslatorUpdate     EventTypeID = 13
	EventBookCategoryCreate   EventTypeID = 14
	EventBookCategoryUpdate   EventTypeID = 15
	EventBookTranslatorCreate EventTypeID = 16
	EventBookTranslatorUpdate EventTypeID = 17
	EventBookTranslatorDelete EventTypeID = 18
	EventPublisherCreate      EventTypeID = 19
	EventPublisherDelete      EventTypeID = 20
	EventPublisherUpdate      EventTypeID = 21
	EventAuthorCreate         EventTypeID = 22
	EventAuthorDelete         EventTypeID = 23
	EventAuthorUpdate         EventTypeID = 24
	EventBookCreate           EventTypeID = 25
	EventBookDelete           EventTypeID = 26
	EventBookUpdate           EventTypeID = 27
	EventReadingCreate        EventTypeID = 28
	EventReadingDelete        EventTypeID = 29
	EventReadingUpdate        EventTypeID = 30
	EventUserCreate           EventTypeID = 31
	EventUserDelete           EventTypeID = 32
	EventLoginError           EventTypeID = 33
	EventError                EventTypeID = 34
	EventUserUpdate           EventTypeID = 35
)

var AllEventTypes = []EventTypeID{
	EventCategoryCreate, EventCategoryDelete, EventCategoryUpdate,
	EventTranslatorCreate, EventTranslatorDelete, EventTranslatorUpdate,
	EventBookCategoryCreate, EventBookCategoryUpdate,
	EventBookTranslatorCreate, EventBookTranslatorUpdate, EventBookTranslatorDelete,
	EventPublisherCreate, EventPublisherDelete, EventPublisherUpdate,
	EventAuthorCreate, EventAuthorDelete, EventAuthorUpdate,
	EventBookCreate, EventBookDelete, EventBookUpdate,
	EventReadingCreate, EventReadingDelete, EventReadingUpdate,
	EventUserCreate, EventUserDelete, EventLoginError, EventError, EventUserUpdate,
}

func (e EventTypeID) Name() string {
	switch e {
	case EventCategoryCreate:
		return "category_create"
	case EventCategoryDelete:
		return "category_delete"
	case EventCategoryUpdate:
		return "category_update"
	case EventTranslatorCreate:
		return "translator_create"
	case EventTranslatorDelete:
		return "translator_delete"
	case EventTranslatorUpdate:
		return "translator_update"
	case EventBookCategoryCreate:
		return "book_category_create"
	case EventBookCategoryUpdate:
		return "book_category_update"
	case EventBookTranslatorCreate:
		return "book_translator_create"
	case EventBookTranslatorUpdate:
		return "book_translator_update"
	case EventBookTranslatorDelete:
		return "book_translator_delete"
	case EventPublisherCreate:
		return "publisher_create"
	case EventPublisherDelete:
		return "publisher_delete"
	case EventPublisherUpdate:
		return "publisher_update"
	case EventAuthorCreate:
		return "author_create"
	case EventAuthorDelete:
		return "author_delete"
	case EventAuthorUpdate:
		return "author_update"
	case EventBookCreate:
		return "book_create"
	case EventBookDelete:
		return "book_delete"
	case EventBookUpdate:
		return "book_update"
	case EventReadingCreate:
		return "reading_create"
	case EventReadingDelete:
		return "reading_delete"
	case EventReadingUpdate:
		return "reading_update"
	case EventUserCreate:
		return "user_create"
	case EventUserDelete:
		return "user_delete"
	case EventLoginError:
		return "login_error"
	case EventError:
		return "error"
	case EventUserUpdate:
		return "user_update"
	default:
		return ""
	}
}

func (e EventTypeID) Valid() bool {
	return e.Name() != ""
}

func (e EventTypeID) String() string {
	if name := e.Name(); name != "" {
		return name
	}
	return "event_type(" + strconv.FormatUint(uint64(e), 10) + ")"
}

// EventType is the lookup row for an EventTypeID.
type EventType struct {
	ID   EventTypeID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string      `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

func (EventType) TableName() string {
	return "event_types"
}
