// Package catalog loads the static JSON fixtures that seed a store's
// stock table and a client's order list. Only its interface is
// load-bearing for the protocol under test, so it is implemented
// directly against encoding/json rather than through the ring
// package's layered viper configuration.
package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/timour/storefleet/internal/order"
)

// pedido mirrors one entry of a pedidosN.json order list.
type pedido struct {
	ProductID int `json:"id_producto"`
	Quantity  int `json:"cantidad"`
}

// LoadStock reads configs/stock{id}.json: an object mapping stringified
// product id to remaining quantity.
func LoadStock(path string) (map[uint16]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read stock file %s: %w", path, err)
	}

	var table map[string]uint32
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("catalog: parse stock file %s: %w", path, err)
	}

	stock := make(map[uint16]uint32, len(table))
	for key, qty := range table {
		id, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("catalog: stock file %s: bad product id %q: %w", path, key, err)
		}
		stock[uint16(id)] = qty
	}
	return stock, nil
}

// LoadOrders reads configs/pedidos{id}.json: an array of
// {id_producto, cantidad} objects, assigning order_id = index.
func LoadOrders(path string) ([]order.Order, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read order file %s: %w", path, err)
	}

	var pedidos []pedido
	if err := json.Unmarshal(raw, &pedidos); err != nil {
		return nil, fmt.Errorf("catalog: parse order file %s: %w", path, err)
	}

	orders := make([]order.Order, len(pedidos))
	for i, p := range pedidos {
		orders[i] = order.Order{ProductID: uint16(p.ProductID), Quantity: uint8(p.Quantity)}
	}
	return orders, nil
}

// PickRandomEcommerceFile returns the path of a random order-list file
// under dir, for the client CLI's "pick any fixture" behaviour.
func PickRandomEcommerceFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("catalog: read ecommerce dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("catalog: no ecommerce fixtures found in %s", dir)
	}

	return filepath.Join(dir, files[rand.Intn(len(files))]), nil
}
