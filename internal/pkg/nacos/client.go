package nacos

import (
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
)

// Client 封装 Nacos 命名客户端。
type Client struct {
	naming    naming_client.INamingClient
	namespace string
	group     string
}

// New 创建 Nacos 客户端。addrs 形如 "ip1:port1,ip2:port2"。
func New(addrs, namespace, group string) (*Client, error) {
	if group == "" {
		group = "DEFAULT_GROUP"
	}

	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, errors.Errorf("invalid nacos address %q", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid nacos port %q", portStr)
		}
		serverConfigs = append(serverConfigs, *constant.NewServerConfig(host, port))
	}

	clientConfig := *constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/nacos/log"),
		constant.WithCacheDir("/tmp/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(namespace),
	)

	naming, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create nacos naming client")
	}

	return &Client{naming: naming, namespace: namespace, group: group}, nil
}

// Register 注册一个临时实例，心跳断开后自动摘除。
func (c *Client) Register(serviceName, ip string, port int) error {
	ok, err := c.naming.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          ip,
		Port:        uint64(port),
		ServiceName: serviceName,
		Weight:      10,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		GroupName:   c.group,
	})
	if err != nil {
		return errors.Wrapf(err, "register %s with nacos", serviceName)
	}
	if !ok {
		return errors.Errorf("nacos rejected registration of %s", serviceName)
	}
	return nil
}

// Deregister 注销实例。
func (c *Client) Deregister(serviceName, ip string, port int) error {
	_, err := c.naming.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          ip,
		Port:        uint64(port),
		ServiceName: serviceName,
		Ephemeral:   true,
		GroupName:   c.group,
	})
	if err != nil {
		return errors.Wrapf(err, "deregister %s from nacos", serviceName)
	}
	return nil
}

// Discover 按 Nacos 内置负载均衡选一个健康实例。
func (c *Client) Discover(serviceName string) (string, int, error) {
	instance, err := c.naming.SelectOneHealthyInstance(vo.SelectOneHealthInstanceParam{
		ServiceName: serviceName,
		GroupName:   c.group,
	})
	if err != nil {
		return "", 0, errors.Wrapf(err, "discover %s", serviceName)
	}
	if instance == nil {
		return "", 0, errors.Errorf("no healthy instance for %s", serviceName)
	}
	return instance.Ip, int(instance.Port), nil
}
