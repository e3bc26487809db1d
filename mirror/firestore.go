package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/bitmark-inc/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"voting-ledger/models"
)

// FirestoreCredentials selects how the client authenticates. With a file
// set the other fields are ignored; with nothing set application default
// credentials are used.
type FirestoreCredentials struct {
	ProjectID       string
	ClientEmail     string
	PrivateKey      string
	CredentialsFile string
}

// serviceAccount is the subset of a service account key file needed to
// build credentials from environment values
type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

const googleTokenURI = "https://oauth2.googleapis.com/token"

type FirestoreStore struct {
	client *firestore.Client
	log    *logger.L
}

// NewFirestoreStore connects to the project's Firestore database.
func NewFirestoreStore(ctx context.Context, creds FirestoreCredentials) (*FirestoreStore, error) {
	if creds.ProjectID == "" {
		return nil, errors.New("firestore project id missing")
	}

	var opts []option.ClientOption
	switch {
	case creds.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(creds.CredentialsFile))
	case creds.ClientEmail != "" && creds.PrivateKey != "":
		data, err := json.Marshal(serviceAccount{
			Type:        "service_account",
			ProjectID:   creds.ProjectID,
			ClientEmail: creds.ClientEmail,
			PrivateKey:  NormalizePrivateKey(creds.PrivateKey),
			TokenURI:    googleTokenURI,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	}

	client, err := firestore.NewClient(ctx, creds.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	return &FirestoreStore{
		client: client,
		log:    logger.New("mirror"),
	}, nil
}

// NormalizePrivateKey turns escaped newlines from an environment value into
// real ones.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func (f *FirestoreStore) Name() string {
	return "firestore"
}

func (f *FirestoreStore) Tip(ctx context.Context) (*models.ChainBlock, error) {
	iter := f.client.Collection(ChainCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBlock(doc)
}

func (f *FirestoreStore) AppendBlock(ctx context.Context, block *models.ChainBlock) error {
	ref, _, err := f.client.Collection(ChainCollection).Add(ctx, block)
	if err != nil {
		return err
	}
	block.ID = ref.ID
	f.log.Debugf("block stored: %s", ref.ID)
	return nil
}

func (f *FirestoreStore) AppendVote(ctx context.Context, vote *models.MirrorVote) error {
	_, _, err := f.client.Collection(VoteCollection).Add(ctx, vote)
	return err
}

func (f *FirestoreStore) Chain(ctx context.Context) ([]*models.ChainBlock, error) {
	iter := f.client.Collection(ChainCollection).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	blocks := make([]*models.ChainBlock, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		block, err := decodeBlock(doc)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func decodeBlock(doc *firestore.DocumentSnapshot) (*models.ChainBlock, error) {
	var block models.ChainBlock
	if err := doc.DataTo(&block); err != nil {
		return nil, err
	}
	block.ID = doc.Ref.ID
	return &block, nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}
