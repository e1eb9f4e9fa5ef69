package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/tckz/portfolio-visits/internal/log"
	"go.uber.org/zap"
)

const AttrType = "type"

const TypeVisit = "visit"

var _ Notifier = (*PubsubNotifier)(nil)

type PubsubNotifier struct {
	topic  *pubsub.Topic
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewPubsubNotifier(topic *pubsub.Topic, zl *zap.Logger) *PubsubNotifier {
	return &PubsubNotifier{topic: topic, logger: log.OrNop(zl)}
}

func (n *PubsubNotifier) Notify(ctx context.Context, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("json.Marshal", zap.Error(err))
		return
	}

	// the request may be gone before the publish settles
	ctx = context.WithoutCancel(ctx)
	res := n.topic.Publish(ctx, &pubsub.Message{
		Data:       b,
		Attributes: map[string]string{AttrType: TypeVisit},
	})

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := res.Get(ctx); err != nil {
			n.logger.Warn("publish visit event", zap.String("id", ev.ID), zap.Int64("count", ev.Count), zap.Error(err))
		}
	}()
}

// Stop flushes pending messages and waits for their results.
func (n *PubsubNotifier) Stop() {
	n.topic.Stop()
	n.wg.Wait()
}

func Decode(msg *pubsub.Message) (Event, error) {
	var ev Event
	err := json.Unmarshal(msg.Data, &ev)
	return ev, err
}
