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

package engine

import (
	"encoding/json"
	"errors"

	"github.com/rulego/flowgraph/api/types"
)

var _ types.Parser = (*JsonParser)(nil)

// JsonParser Json
type JsonParser struct {
}

// DecodeFlowAsset 通过json解析流程资产
func (p *JsonParser) DecodeFlowAsset(data []byte) (*types.FlowAssetDef, error) {
	var def types.FlowAssetDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	if def.Asset.Id == "" {
		return nil, errors.New("flow asset id is empty")
	}
	return &def, nil
}

// EncodeFlowAsset 格式化输出流程资产
func (p *JsonParser) EncodeFlowAsset(def *types.FlowAssetDef) ([]byte, error) {
	return json.MarshalIndent(def, "", "  ")
}
