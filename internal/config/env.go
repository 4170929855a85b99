package config

import (
	"fmt"
	"strconv"

	"vitals_go/pkg/utils"
)

// lookupFunc tem a assinatura de os.LookupEnv
type lookupFunc func(string) (string, bool)

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"VITALS_SENSOR_SOURCE":  &cfg.Sensor.Source,
		"VITALS_SENSOR_HOST":    &cfg.Sensor.Host,
		"VITALS_REDIS_HOST":     &cfg.Redis.Host,
		"VITALS_REDIS_PASSWORD": &cfg.Redis.Password,
		"VITALS_REDIS_PREFIX":   &cfg.Redis.Prefix,
		"VITALS_NATS_URL":       &cfg.NATS.URL,
		"VITALS_NATS_CODEC":     &cfg.NATS.Codec,
		"VITALS_MQTT_BROKER":    &cfg.MQTT.Broker,
		"VITALS_MQTT_TOPIC":     &cfg.MQTT.Topic,
		"VITALS_PLC_HOST":       &cfg.PLC.Host,
		"VITALS_LOG_LEVEL":      &cfg.Log.Level,
		"VITALS_DISCOVERY_NAME": &cfg.Discovery.Instance,
		"VITALS_NATS_FRAMES":    &cfg.NATS.FrameSubject,
		"VITALS_NATS_RESULTS":   &cfg.NATS.ResultSubject,
		"VITALS_MQTT_CLIENT_ID": &cfg.MQTT.ClientID,
		"VITALS_MQTT_STATUS":    &cfg.MQTT.StatusTopic,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"VITALS_SERVER_PORT": &cfg.Server.Port,
		"VITALS_SENSOR_PORT": &cfg.Sensor.Port,
		"VITALS_REDIS_PORT":  &cfg.Redis.Port,
		"VITALS_REDIS_DB":    &cfg.Redis.DB,
		"VITALS_PLC_DB":      &cfg.PLC.DBNumber,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("variável %s inválida: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"VITALS_REDIS_ENABLED":     &cfg.Redis.Enabled,
		"VITALS_NATS_ENABLED":      &cfg.NATS.Enabled,
		"VITALS_MQTT_ENABLED":      &cfg.MQTT.Enabled,
		"VITALS_PLC_ENABLED":       &cfg.PLC.Enabled,
		"VITALS_DISCOVERY_ENABLED": &cfg.Discovery.Enabled,
		"VITALS_LOG_FILE":          &cfg.Log.File,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := utils.ParseBool(v)
			if err != nil {
				return fmt.Errorf("variável %s inválida: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}
