package market

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNotFound Error = "record(s) not found"

	ErrNotListed Error = "nft is not listed for sale"

	ErrMissingFields Error = "name, description and price are required"

	ErrMissingCollectionFields Error = "name and description are required"

	ErrInvalidPrice Error = "price must be a non-negative number"

	ErrMissingHandle Error = "twitter handle is required"
)
