// Package pubsub opens the Google Pub/Sub connection the outbox publisher
// writes domain events to.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNotConnected      = errors.New("pubsub client not initialized")
)

type Client struct {
	client  *pubsub.Client
	project string
	topics  []string
	ordered bool
}

// NewClient connects to project gcp.ProjectID and fails unless every
// configured topic already exists. Topics are provisioned out of band.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := topicNames(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	ps, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: ps, project: project, topics: topics, ordered: cfg.OrderedDelivery}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": project,
			"topics":     topics,
			"ordered":    c.ordered,
		}), "pubsub.connected")
	}
	return c, nil
}

// topicNames lists the distinct non-blank topics in cfg.
func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, raw := range []string{cfg.BargainsTopic, cfg.OrdersTopic, cfg.SettlementTopic, cfg.DomainTopic} {
		name := strings.TrimSpace(raw)
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// Ping looks up every configured topic and reports all that are missing or
// unreadable, not just the first.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	var errs error
	for _, name := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: resourceName(c.project, "topics", name),
		})
		switch {
		case status.Code(err) == codes.NotFound:
			errs = multierr.Append(errs, fmt.Errorf("topic %q does not exist", name))
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("get topic %q: %w", name, err))
		}
	}
	return errs
}

// Publisher returns a handle for topic, which may be a short id or a full
// resource name. With ordered delivery on, messages that share an ordering
// key reach subscribers in publish order.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := resourceName(c.project, "topics", topic)
	if name == "" {
		return nil
	}
	pub := c.client.Publisher(name)
	pub.EnableMessageOrdering = c.ordered
	return pub
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short id into projects/<p>/<kind>/<id>; full names pass through.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/" + kind + "/" + name
}
