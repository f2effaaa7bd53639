package market

import "time"

const (
	// CouchbaseScope is the Couchbase scope in which the marketplace records
	// are stored
	CouchbaseScope = "marketplace"

	// CollectionsKeyspace is the Couchbase collection holding the NFT
	// collection records
	CollectionsKeyspace = "collections"

	// NFTsKeyspace is the Couchbase collection holding the NFT records
	NFTsKeyspace = "nfts"

	// DefaultOwnerAddress is assigned to minted NFTs and to collections
	// created without an owner. There is no real minter attribution; the
	// wallet only supplies a display address.
	DefaultOwnerAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

	// DefaultNFTImageURL is used when a mint request carries no image
	DefaultNFTImageURL = "https://neon-market.app/assets/placeholder-nft.png"
)

// Collection represents an NFT collection record. Collections are looked up
// externally by a slugified form of Name, so Name is treated as unique by the
// lookup path even though the store never enforces it.
type Collection struct {
	// Address is the generated, immutable identifier of the collection
	Address string `json:"collection_address"`

	Name        string `json:"name"`
	Description string `json:"description"`

	// OwnerAddress is the creating wallet's address. No ownership
	// verification is performed.
	OwnerAddress string `json:"owner_address"`

	ImageURL string `json:"image_url,omitempty"`

	// TwitterHandle and the four credential fields below form the optional
	// auto-post bundle. All-or-nothing in spirit but stored independently
	// and nullable.
	TwitterHandle string `json:"twitter_handle,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	APISecret     string `json:"api_secret,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
	AccessSecret  string `json:"access_secret,omitempty"`

	CreatedAt *time.Time `json:"created_at"`
}

// HasTwitterCredentials reports whether the collection carries a complete
// credential bundle for auto-posting.
func (c *Collection) HasTwitterCredentials() bool {
	return c.TwitterHandle != "" && c.APIKey != "" && c.APISecret != "" &&
		c.AccessToken != "" && c.AccessSecret != ""
}

// NFT represents a minted NFT record.
type NFT struct {
	// Address is the generated, immutable identifier of the NFT
	Address string `json:"nft_address"`

	// CollectionName references the owning collection by display name, not
	// by address. The reference breaks silently if the collection is ever
	// renamed.
	CollectionName string `json:"collection_name"`

	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`

	// IsListed is true at mint time and flips false exactly once, at
	// purchase time. There is no re-listing path. The JSON name is all
	// lowercase to match the stored column.
	IsListed bool `json:"islisted"`

	// OwnerAddress is set at mint and never updated on purchase; only the
	// listed flag flips.
	OwnerAddress string `json:"owner_address"`

	// MintedAt is the creation time, used as the descending sort key for
	// display
	MintedAt *time.Time `json:"minted_at"`
}

// FullyQualifiedKeyspace returns the bucket-qualified name of a marketplace
// keyspace, e.g. `bucket`.marketplace.nfts.
func FullyQualifiedKeyspace(bucket, keyspace string) string {
	return "`" + bucket + "`" + "." + CouchbaseScope + "." + keyspace
}

// TwitterCredentials is the credential bundle attached to a collection for
// the auto-post integration.
type TwitterCredentials struct {
	Handle       string `json:"twitter_handle"`
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}
