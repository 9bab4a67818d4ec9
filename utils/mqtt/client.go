/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mqtt wraps the paho MQTT client for replication between game servers.
//
// The client keeps a topic to handler map and re-subscribes every handler after a
// reconnect. Connecting retries with exponential backoff until the context ends.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
)

// Handler 订阅数据处理器
type Handler struct {
	//订阅主题
	Topic string
	//订阅Qos
	Qos byte
	//接收订阅数据 处理
	Handle func(c paho.Client, data paho.Message)
}

// Config 客户端配置
type Config struct {
	//mqtt broker 地址
	Server   string `json:"server" mapstructure:"server"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	//重连重试间隔
	MaxReconnectInterval time.Duration `json:"maxReconnectInterval" mapstructure:"maxReconnectInterval"`
	QOS                  uint8         `json:"qos" mapstructure:"qos"`
	CleanSession         bool          `json:"cleanSession" mapstructure:"cleanSession"`
	//client Id，为空时随机生成
	ClientID    string `json:"clientId" mapstructure:"clientId"`
	CAFile      string `json:"caFile" mapstructure:"caFile"`
	CertFile    string `json:"certFile" mapstructure:"certFile"`
	CertKeyFile string `json:"certKeyFile" mapstructure:"certKeyFile"`
}

// Client mqtt客户端
type Client struct {
	sync.RWMutex
	client paho.Client
	//订阅主题和处理器映射
	msgHandlerMap map[string]Handler
	//连接断开回调
	OnConnectionLost func(err error)
}

// ClientOptions builds the paho options of conf. The client is not connected.
func ClientOptions(conf Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("flowgraph/" + uuid.Must(uuid.NewV4()).String()[:8])
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsConfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s: %w", conf.CAFile, conf.CertFile, conf.CertKeyFile, err)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	return opts, nil
}

// NewClient connects to the broker, retrying until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	opts, err := ClientOptions(conf)
	if err != nil {
		return nil, err
	}
	b := &Client{
		msgHandlerMap: make(map[string]Handler),
	}
	opts.SetOnConnectHandler(b.onConnected)
	opts.SetConnectionLostHandler(b.onConnectionLost)
	b.client = paho.NewClient(opts)

	connect := func() error {
		token := b.client.Connect()
		token.Wait()
		return token.Error()
	}
	retry := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(connect, retry); err != nil {
		return nil, err
	}
	return b, nil
}

// RegisterHandler 注册订阅数据处理器
func (b *Client) RegisterHandler(handler Handler) error {
	b.Lock()
	b.msgHandlerMap[handler.Topic] = handler
	b.Unlock()
	return b.subscribeHandler(handler)
}

// UnregisterHandler 删除订阅数据处理器
func (b *Client) UnregisterHandler(topic string) error {
	b.Lock()
	defer b.Unlock()
	if _, exists := b.msgHandlerMap[topic]; !exists {
		return nil
	}
	if token := b.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	delete(b.msgHandlerMap, topic)
	return nil
}

// Handlers returns the registered handlers.
func (b *Client) Handlers() []Handler {
	b.RLock()
	defer b.RUnlock()
	handlers := make([]Handler, 0, len(b.msgHandlerMap))
	for _, h := range b.msgHandlerMap {
		handlers = append(handlers, h)
	}
	return handlers
}

// Close unsubscribes every handler and disconnects.
func (b *Client) Close() error {
	for _, h := range b.Handlers() {
		b.client.Unsubscribe(h.Topic)
	}
	b.client.Disconnect(500)
	return nil
}

// Publish 发布数据
func (b *Client) Publish(topic string, qos byte, data []byte) error {
	if token := b.client.Publish(topic, qos, false, data); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// 重连后重新订阅
func (b *Client) onConnected(c paho.Client) {
	for _, h := range b.Handlers() {
		_ = b.subscribeHandler(h)
	}
}

func (b *Client) subscribeHandler(handler Handler) error {
	token := b.client.Subscribe(handler.Topic, handler.Qos, handler.Handle)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	if st, ok := token.(*paho.SubscribeToken); ok && is128Err(st, handler.Topic) {
		return fmt.Errorf("subscribe %s refused", handler.Topic)
	}
	return nil
}

// 判断是否是acl 128错误
func is128Err(token *paho.SubscribeToken, topic string) bool {
	result, ok := token.Result()[topic]
	return ok && result == 128
}

func (b *Client) onConnectionLost(c paho.Client, reason error) {
	if b.OnConnectionLost != nil {
		b.OnConnectionLost(reason)
	}
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = certPool
	}
	if certFile != "" && certKeyFile != "" {
		kp, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{kp}
	}
	return tlsConfig, nil
}
