package twitter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"neon-market/internal/market"
)

// Publisher posts mint announcements to Twitter using the credential bundle
// stored on the minting collection. Each collection brings its own keys, so
// a client is built per publish rather than held on the struct.
type Publisher struct {
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		return nil, errors.New("unable to initialize publisher due to the missing logger dependency")
	}

	return &Publisher{logger: logger}, nil
}

// PublishMint tweets the mint announcement. The caller treats failures as
// best effort; nothing here retries.
func (p *Publisher) PublishMint(creds market.TwitterCredentials, nft market.NFT) error {
	logger := p.logger.With(
		zap.String("nftAddress", nft.Address),
		zap.String("handle", creds.Handle),
	)

	client := twitter.NewClient(authClient(creds))

	tweet, resp, err := client.Statuses.Update(mintText(nft), nil)
	if err != nil {
		const msg = "unable to post mint tweet"
		logger.Error(msg, zap.Error(err))
		return fmt.Errorf(msg+": %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		const msg = "received non 200 response"
		logger.Error(msg, zap.Int("statusCode", resp.StatusCode))
		return fmt.Errorf(msg+": %d", resp.StatusCode)
	}

	logger.Debug("posted mint tweet", zap.Int64("tweetId", tweet.ID))

	return nil
}

func mintText(nft market.NFT) string {
	text := "New NFT Minted!\n" +
		"Name: " + nft.Name + "\n" +
		"Collection: " + nft.CollectionName + "\n" +
		"Price: " + strconv.FormatFloat(nft.Price, 'f', -1, 64) + " APT\n"

	if nft.MintedAt != nil {
		text += "Minted: " + nft.MintedAt.UTC().String() + "\n"
	}

	text += "#NeonMarket"

	return text
}

func authClient(creds market.TwitterCredentials) *http.Client {
	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	return config.Client(oauth1.NoContext, token)
}
