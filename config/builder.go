package config

import (
	"log/slog"

	"github.com/trendscribe/trendwatch"
	"github.com/trendscribe/trendwatch/api"
)

// Build converts parsed configuration into a ready-to-use API client
// and polling service.
//
// The returned client owns the response cache; the service polls
// through [trendwatch.DefaultRoutes] bound to it. The caller is
// responsible for closing both (service first, then client) and for
// creating the subscriptions via [Subscribe].
func Build(cfg *Config, logger *slog.Logger) (*api.Client, *trendwatch.Service, error) {
	clientOpts := []api.ClientOption{}
	if cfg.Token != "" {
		clientOpts = append(clientOpts, api.WithTokenStore(api.NewStaticTokenStore(cfg.Token)))
	}
	if logger != nil {
		clientOpts = append(clientOpts, api.WithClientLogger(logger))
	}

	client, err := api.NewClient(cfg.BaseURL, clientOpts...)
	if err != nil {
		return nil, nil, err
	}

	serviceOpts := []trendwatch.Option{}
	if logger != nil {
		serviceOpts = append(serviceOpts, trendwatch.WithLogger(logger))
	}
	if cfg.MinInterval != 0 {
		serviceOpts = append(serviceOpts, trendwatch.WithFloor(cfg.MinInterval.Duration()))
	}
	if cfg.ActivityWindow != 0 {
		serviceOpts = append(serviceOpts, trendwatch.WithActivityWindow(cfg.ActivityWindow.Duration()))
	}

	svc, err := trendwatch.New(trendwatch.DefaultRoutes(client), serviceOpts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return client, svc, nil
}

// Subscribe registers every configured subscription on the service.
//
// The callback and errorCallback are shared by all subscriptions and
// receive the subscription config alongside the payload or error.
// Successfully created subscriptions are torn down again if a later
// one fails.
func Subscribe(svc *trendwatch.Service, cfg *Config, callback func(SubscriptionConfig, any), errorCallback func(SubscriptionConfig, error)) error {
	var cancels []func()

	for _, sc := range cfg.Subscriptions {
		sc := sc

		opts := []trendwatch.SubscribeOption{}
		if sc.Interval != 0 {
			opts = append(opts, trendwatch.WithInterval(sc.Interval.Duration()))
		}
		if errorCallback != nil {
			opts = append(opts, trendwatch.WithErrorCallback(func(err error) {
				errorCallback(sc, err)
			}))
		}

		cancel, err := svc.Subscribe(sc.ID, trendwatch.Endpoint(sc.Endpoint), func(data any) {
			callback(sc, data)
		}, opts...)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return err
		}
		cancels = append(cancels, cancel)
	}

	return nil
}
