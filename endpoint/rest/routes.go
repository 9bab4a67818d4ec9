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

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
)

const apiPrefix = "/api/v1"

type nodeView struct {
	Id     string   `json:"id"`
	Type   string   `json:"type"`
	State  string   `json:"state"`
	Status string   `json:"status,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

type instanceView struct {
	Id             string     `json:"id"`
	AssetId        string     `json:"assetId"`
	OwnerId        string     `json:"ownerId,omitempty"`
	ParentInstance string     `json:"parentInstance,omitempty"`
	ParentNode     string     `json:"parentNode,omitempty"`
	Started        bool       `json:"started"`
	Finished       bool       `json:"finished"`
	ActiveNodes    []string   `json:"activeNodes"`
	Nodes          []nodeView `json:"nodes,omitempty"`
	Vars           types.Vars `json:"vars,omitempty"`
}

type componentView struct {
	Id    string   `json:"id"`
	Actor string   `json:"actor,omitempty"`
	Tags  []string `json:"tags"`
}

// startRequest 启动根流程请求
type startRequest struct {
	AssetId      string `json:"assetId"`
	InstanceName string `json:"instanceName"`
}

// tagsRequest 修改标签或发送通知请求
type tagsRequest struct {
	Tags []string `json:"tags"`
	//local 或 authority，默认 authority
	NetMode types.NetMode `json:"netMode"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Errors string `json:"errors,omitempty"`
}

// tagged is a component whose tags can be changed at runtime.
type tagged interface {
	AddIdentityTags(tags types.TagContainer, mode types.NetMode)
	RemoveIdentityTags(tags types.TagContainer, mode types.NetMode)
	NotifyGraph(tag types.Tag, mode types.NetMode)
}

func newInstanceView(x *engine.FlowInstance, withNodes bool) instanceView {
	parentInstance, parentNode := x.Parent()
	v := instanceView{
		Id:             x.Id(),
		AssetId:        x.AssetId(),
		OwnerId:        x.OwnerId(),
		ParentInstance: parentInstance,
		ParentNode:     parentNode,
		Started:        x.IsStarted(),
		Finished:       x.IsFinished(),
		ActiveNodes:    x.ActiveNodes(),
	}
	if v.ActiveNodes == nil {
		v.ActiveNodes = []string{}
	}
	if withNodes {
		v.Vars = x.Vars()
		for _, n := range x.Nodes() {
			v.Nodes = append(v.Nodes, nodeView{
				Id:     n.NodeId(),
				Type:   n.NodeType(),
				State:  n.State().String(),
				Status: n.Status(),
				Errors: n.Errors(),
			})
		}
	}
	return v
}

func newComponentView(c types.Component) componentView {
	v := componentView{Id: c.Id(), Tags: c.IdentityTags().Strings()}
	if c.Actor() != nil {
		v.Actor = c.Actor().Id()
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v
}

func parsePolicy(s string) (types.FinishPolicy, error) {
	switch s {
	case "", "keep":
		return types.FinishPolicyKeep, nil
	case "abort":
		return types.FinishPolicyAbort, nil
	default:
		return 0, badRequest(fmt.Errorf("unknown finish policy %s", s))
	}
}

func parseNetMode(mode types.NetMode) (types.NetMode, error) {
	switch mode {
	case "":
		return types.NetModeAuthority, nil
	case types.NetModeLocal, types.NetModeAuthority:
		return mode, nil
	default:
		return "", badRequest(fmt.Errorf("unknown net mode %s", mode))
	}
}

func (r *Rest) routes() {
	r.GET(apiPrefix+"/assets", r.listAssets)
	r.POST(apiPrefix+"/assets", r.putAsset)
	r.GET(apiPrefix+"/assets/:assetId", r.getAsset)
	r.DELETE(apiPrefix+"/assets/:assetId", r.deleteAsset)
	r.POST(apiPrefix+"/assets/:assetId/validate", r.validateAsset)

	r.GET(apiPrefix+"/instances", r.listInstances)
	r.GET(apiPrefix+"/instances/:instanceId", r.getInstance)

	r.POST(apiPrefix+"/flows/:ownerId/start", r.startRootFlow)
	r.POST(apiPrefix+"/flows/:ownerId/finish", r.finishRootFlow)
	r.POST(apiPrefix+"/flows/:ownerId/inputs/:name", r.triggerCustomInput)

	r.GET(apiPrefix+"/components", r.listComponents)
	r.POST(apiPrefix+"/components/:componentId/tags", r.addTags)
	r.DELETE(apiPrefix+"/components/:componentId/tags", r.removeTags)
	r.POST(apiPrefix+"/components/:componentId/notify", r.notifyGraph)

	r.GET(apiPrefix+"/saves", r.listSaves)
	r.POST(apiPrefix+"/saves/:slot", r.saveGame)
	r.POST(apiPrefix+"/saves/:slot/load", r.loadGame)
	r.DELETE(apiPrefix+"/saves/:slot", r.deleteSave)
}

// MountDebug serves the debug event stream at /api/v1/debug/ws.
func (r *Rest) MountDebug(hub http.Handler) *Rest {
	return r.Handler(http.MethodGet, apiPrefix+"/debug/ws", hub)
}

func (r *Rest) listAssets(exchange *Exchange) (interface{}, error) {
	var ids []string
	err := r.onLoop(exchange, func() (err error) {
		ids, err = r.subsystem.Assets().List()
		return err
	})
	if ids == nil {
		ids = []string{}
	}
	return ids, err
}

func (r *Rest) getAsset(exchange *Exchange) (interface{}, error) {
	var data []byte
	err := r.onLoop(exchange, func() error {
		def, ok := r.subsystem.AssetDef(exchange.Param("assetId"))
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrAssetNotFound, exchange.Param("assetId"))
		}
		var err error
		data, err = r.subsystem.Config().Parser.EncodeFlowAsset(def)
		return err
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// putAsset validates and stores an asset definition.
func (r *Rest) putAsset(exchange *Exchange) (interface{}, error) {
	body, err := exchange.Body()
	if err != nil {
		return nil, err
	}
	def, err := r.subsystem.Config().Parser.DecodeFlowAsset(body)
	if err != nil {
		return nil, badRequest(err)
	}
	err = r.onLoop(exchange, func() error {
		if err := r.subsystem.Validate(def); err != nil {
			return badRequest(err)
		}
		return r.subsystem.Assets().Put(def)
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": def.Asset.Id}, nil
}

func (r *Rest) deleteAsset(exchange *Exchange) (interface{}, error) {
	return nil, r.onLoop(exchange, func() error {
		return r.subsystem.Assets().Delete(exchange.Param("assetId"))
	})
}

func (r *Rest) validateAsset(exchange *Exchange) (interface{}, error) {
	var result validateResponse
	err := r.onLoop(exchange, func() error {
		def, ok := r.subsystem.AssetDef(exchange.Param("assetId"))
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrAssetNotFound, exchange.Param("assetId"))
		}
		if err := r.subsystem.Validate(def); err != nil {
			result.Errors = err.Error()
		} else {
			result.Valid = true
		}
		return nil
	})
	return result, err
}

func (r *Rest) listInstances(exchange *Exchange) (interface{}, error) {
	views := []instanceView{}
	err := r.onLoop(exchange, func() error {
		for _, x := range r.subsystem.Instances() {
			views = append(views, newInstanceView(x, false))
		}
		return nil
	})
	return views, err
}

func (r *Rest) getInstance(exchange *Exchange) (interface{}, error) {
	var view instanceView
	err := r.onLoop(exchange, func() error {
		x, ok := r.subsystem.Instance(exchange.Param("instanceId"))
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrInstanceNotFound, exchange.Param("instanceId"))
		}
		view = newInstanceView(x, true)
		return nil
	})
	return view, err
}

func (r *Rest) startRootFlow(exchange *Exchange) (interface{}, error) {
	var req startRequest
	if err := exchange.Bind(&req); err != nil {
		return nil, err
	}
	var view instanceView
	err := r.onLoop(exchange, func() error {
		ownerId := exchange.Param("ownerId")
		assetId := req.AssetId
		if assetId == "" {
			//使用组件配置的根流程
			if c, ok := r.subsystem.Component(ownerId); ok {
				if fc, ok := c.(*engine.FlowComponent); ok {
					x, err := fc.StartRootFlow()
					if err != nil {
						return err
					}
					view = newInstanceView(x, false)
					return nil
				}
			}
			return badRequest(errors.New("assetId is required"))
		}
		x, err := r.subsystem.StartRootFlow(ownerId, assetId, req.InstanceName)
		if err != nil {
			return err
		}
		view = newInstanceView(x, false)
		return nil
	})
	return view, err
}

func (r *Rest) finishRootFlow(exchange *Exchange) (interface{}, error) {
	policy, err := parsePolicy(exchange.Param("policy"))
	if err != nil {
		return nil, err
	}
	return nil, r.onLoop(exchange, func() error {
		return r.subsystem.FinishRootFlow(exchange.Param("ownerId"), policy)
	})
}

func (r *Rest) triggerCustomInput(exchange *Exchange) (interface{}, error) {
	return nil, r.onLoop(exchange, func() error {
		return r.subsystem.TriggerRootFlowCustomInput(exchange.Param("ownerId"), exchange.Param("name"))
	})
}

func (r *Rest) listComponents(exchange *Exchange) (interface{}, error) {
	views := []componentView{}
	err := r.onLoop(exchange, func() error {
		for _, c := range r.subsystem.Components() {
			views = append(views, newComponentView(c))
		}
		return nil
	})
	return views, err
}

// changeComponent binds a tags request and applies fn to the component on the loop.
func (r *Rest) changeComponent(exchange *Exchange, fn func(c tagged, tags types.TagContainer, mode types.NetMode)) (interface{}, error) {
	var req tagsRequest
	if err := exchange.Bind(&req); err != nil {
		return nil, err
	}
	mode, err := parseNetMode(req.NetMode)
	if err != nil {
		return nil, err
	}
	if len(req.Tags) == 0 {
		return nil, badRequest(errors.New("tags are required"))
	}
	var view componentView
	err = r.onLoop(exchange, func() error {
		id := exchange.Param("componentId")
		c, ok := r.subsystem.Component(id)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrComponentNotFound, id)
		}
		target, ok := c.(tagged)
		if !ok {
			return badRequest(fmt.Errorf("component %s does not support tag changes", id))
		}
		fn(target, types.NewTagContainer(req.Tags...), mode)
		view = newComponentView(c)
		return nil
	})
	return view, err
}

func (r *Rest) addTags(exchange *Exchange) (interface{}, error) {
	return r.changeComponent(exchange, func(c tagged, tags types.TagContainer, mode types.NetMode) {
		c.AddIdentityTags(tags, mode)
	})
}

func (r *Rest) removeTags(exchange *Exchange) (interface{}, error) {
	return r.changeComponent(exchange, func(c tagged, tags types.TagContainer, mode types.NetMode) {
		c.RemoveIdentityTags(tags, mode)
	})
}

func (r *Rest) notifyGraph(exchange *Exchange) (interface{}, error) {
	return r.changeComponent(exchange, func(c tagged, tags types.TagContainer, mode types.NetMode) {
		for _, tag := range tags {
			c.NotifyGraph(tag, mode)
		}
	})
}

var errNoSaves = &statusError{status: http.StatusNotFound, err: errors.New("save games are not enabled")}

func (r *Rest) listSaves(exchange *Exchange) (interface{}, error) {
	if r.saves == nil {
		return nil, errNoSaves
	}
	slots, err := r.saves.List(exchange.Request.Context())
	if slots == nil {
		slots = []string{}
	}
	return slots, err
}

func (r *Rest) saveGame(exchange *Exchange) (interface{}, error) {
	if r.saves == nil {
		return nil, errNoSaves
	}
	game, err := r.saves.Save(exchange.Request.Context(), exchange.Param("slot"))
	if game == nil {
		return nil, err
	}
	//部分节点保存失败时仍然返回存档
	resp := map[string]interface{}{"slot": game.Slot, "savedAt": game.SavedAt, "instances": len(game.Instances)}
	if err != nil {
		resp["error"] = err.Error()
	}
	return resp, nil
}

func (r *Rest) loadGame(exchange *Exchange) (interface{}, error) {
	if r.saves == nil {
		return nil, errNoSaves
	}
	game, err := r.saves.Load(exchange.Request.Context(), exchange.Param("slot"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"slot": game.Slot, "instances": len(game.Instances)}, nil
}

func (r *Rest) deleteSave(exchange *Exchange) (interface{}, error) {
	if r.saves == nil {
		return nil, errNoSaves
	}
	return nil, r.saves.Delete(exchange.Request.Context(), exchange.Param("slot"))
}
