package publish

import (
	"context"
	"fmt"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// KV puts proposal documents into a JetStream KV bucket, keyed by the slugified device name.
type KV struct {
	kv     nats.KeyValue
	logger *logrus.Logger
}

// NewKV binds the bucket named in the options, creating it when it does not exist.
func NewKV(js nats.JetStreamContext, opts *model.NATSOptions, logger *logrus.Logger) (*KV, error) {
	bucket := opts.KVBucket
	if bucket == "" {
		bucket = model.DefaultKVBucket
	}

	replicas := opts.KVReplicas
	if replicas == 0 {
		replicas = model.DefaultKVReplicas
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "netsync proposal documents",
			Replicas:    replicas,
		})
	}

	if err != nil {
		return nil, errors.Wrap(ErrPublish, "bind KV bucket "+bucket+": "+err.Error())
	}

	return &KV{kv: kv, logger: logger}, nil
}

// Connect returns a JetStream context on the NATS server in the options.
func Connect(opts *model.NATSOptions) (*nats.Conn, nats.JetStreamContext, error) {
	natsOpts := []nats.Option{
		nats.Name(model.AppName),
		nats.Timeout(model.DefaultNATSConnectTimout),
	}

	if opts.CredsFile != "" {
		natsOpts = append(natsOpts, nats.UserCredentials(opts.CredsFile))
	}

	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(ErrPublish, "connect: "+err.Error())
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, errors.Wrap(ErrPublish, "jetstream: "+err.Error())
	}

	return nc, js, nil
}

// Publish puts the document and returns its bucket key and revision.
func (k *KV) Publish(_ context.Context, doc *model.ProposalDocument) (string, error) {
	key := model.Slugify(doc.Device)

	b, err := doc.Marshal()
	if err != nil {
		return "", errors.Wrap(ErrPublish, err.Error())
	}

	rev, err := k.kv.Put(key, b)
	if err != nil {
		k.logger.WithError(err).WithField("key", key).Warn("unable to write proposals")
		return "", errors.Wrap(ErrPublish, err.Error())
	}

	return fmt.Sprintf("%s/%s@%d", k.kv.Bucket(), key, rev), nil
}
